package mount

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/frontend"
)

// Binding associates one mounted entry with its anchor. It lives as long as
// the page and is never re-created within it.
type Binding struct {
	ID     string `json:"id"`
	Entry  string `json:"entry"`
	Anchor string `json:"anchor"`
}

// Report is the outcome of mounting a set of entries on one page.
type Report struct {
	Bindings []Binding
	Failures []*MountError
}

// Err joins the failures, or returns nil when every entry mounted.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Bound reports whether entry was mounted by this call.
func (r *Report) Bound(entry string) bool {
	for _, b := range r.Bindings {
		if b.Entry == entry {
			return true
		}
	}
	return false
}

// Coordinator mounts configured entries using a resolver for their URLs.
type Coordinator struct {
	cfg      *frontend.Config
	resolver assets.Resolver
}

// NewCoordinator returns a Coordinator for cfg.
func NewCoordinator(cfg *frontend.Config, resolver assets.Resolver) *Coordinator {
	return &Coordinator{cfg: cfg, resolver: resolver}
}

// Mount attaches each named entry to doc. A failing entry is recorded in the
// report and logged; it never prevents the remaining entries from mounting
// and leaves the document untouched for that entry.
func (c *Coordinator) Mount(doc *Document, names ...string) *Report {
	report := &Report{}

	for _, name := range names {
		b, err := c.mount(doc, name)
		if err != nil {
			var me *MountError
			if !errors.As(err, &me) {
				me = &MountError{Entry: name, Err: err}
			}
			report.Failures = append(report.Failures, me)
			log.Warn().Err(me.Err).Str("entry", me.Entry).Str("anchor", me.Anchor).Msg("entry not mounted")
			continue
		}
		report.Bindings = append(report.Bindings, b)
	}

	return report
}

func (c *Coordinator) mount(doc *Document, name string) (Binding, error) {
	e, ok := c.cfg.Entry(name)
	if !ok {
		return Binding{}, &MountError{Entry: name, Err: ErrUnknownEntry}
	}
	fail := func(err error) (Binding, error) {
		return Binding{}, &MountError{Entry: name, Anchor: e.Anchor, Err: err}
	}

	if _, bound := doc.Binding(name); bound {
		return fail(ErrAlreadyMounted)
	}

	anchors := doc.Anchors(e.Anchor)
	switch len(anchors) {
	case 0:
		return fail(ErrAnchorMissing)
	case 1:
	default:
		return fail(fmt.Errorf("%w: %d elements", ErrAnchorAmbiguous, len(anchors)))
	}
	anchor := anchors[0]
	if other := attr(anchor, AttrEntry); other != "" {
		return fail(fmt.Errorf("%w: anchor holds %q", ErrAlreadyMounted, other))
	}

	bundle, err := c.resolver.Resolve(name)
	if err != nil {
		return fail(err)
	}

	// Resolve and check every global before touching the document so that
	// a conflict leaves no partial mount behind.
	handles := make([]string, 0, len(e.Globals))
	for h := range e.Globals {
		handles = append(handles, h)
	}
	sort.Strings(handles)

	globalURLs := make(map[string]string, len(handles))
	for _, h := range handles {
		u, err := c.resolver.Asset(e.Globals[h])
		if err != nil {
			return fail(err)
		}
		if err := doc.Globals().Check(h, u); err != nil {
			return fail(err)
		}
		globalURLs[h] = u
	}

	for _, href := range bundle.Styles {
		doc.LoadStyle(href)
	}
	for _, h := range handles {
		if _, err := doc.Globals().Register(h, globalURLs[h]); err != nil {
			return fail(err)
		}
	}
	if client := c.resolver.Client(); client != "" {
		doc.LoadModule(client)
	}
	for _, src := range bundle.Imports {
		doc.LoadModule(src)
	}
	for _, src := range bundle.Scripts {
		doc.LoadModule(src)
	}

	b := Binding{ID: uuid.NewString(), Entry: name, Anchor: e.Anchor}
	setAttr(anchor, AttrEntry, name)
	setAttr(anchor, AttrID, b.ID)
	doc.bindings[name] = b

	log.Debug().Str("entry", name).Str("anchor", e.Anchor).Str("binding", b.ID).Msg("entry mounted")
	return b, nil
}

// Page parses r, mounts the named entries and writes the result to w. The
// report is returned even when some entries failed; err is set only when the
// page itself could not be read or written.
func (c *Coordinator) Page(w io.Writer, r io.Reader, names ...string) (*Report, error) {
	doc, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := c.Mount(doc, names...)

	if err := doc.Render(w); err != nil {
		return report, err
	}
	return report, nil
}
