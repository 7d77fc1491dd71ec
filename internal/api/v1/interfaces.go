package v1

import (
	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/manifest"
)

// EntryCatalog abstracts the configured entry set for handler testing.
// *frontend.Config satisfies this interface.
type EntryCatalog interface {
	Names() []string
	Entry(name string) (frontend.Entry, bool)
}

// ManifestSource exposes the current build manifest.
// *assets.ManifestResolver satisfies this interface.
type ManifestSource interface {
	Manifest() manifest.Manifest
}
