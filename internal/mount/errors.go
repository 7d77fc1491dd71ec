package mount

import (
	"errors"
	"fmt"
)

// Sentinel errors for mount failures.
var (
	ErrAnchorMissing   = errors.New("mount: anchor element not found")
	ErrAnchorAmbiguous = errors.New("mount: anchor id matches more than one element")
	ErrAlreadyMounted  = errors.New("mount: already mounted")
	ErrUnknownEntry    = errors.New("mount: unknown entry")
	ErrGlobalConflict  = errors.New("mount: conflicting global registration")
	ErrNoHead          = errors.New("mount: document has no head")
)

// MountError is the failure of one entry on one page.
type MountError struct { //nolint:revive // mount.MountError reads better than mount.Error at call sites
	Entry  string
	Anchor string
	Err    error
}

func (e *MountError) Error() string {
	if e.Anchor == "" {
		return fmt.Sprintf("mount %s: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("mount %s at #%s: %v", e.Entry, e.Anchor, e.Err)
}

func (e *MountError) Unwrap() error { return e.Err }
