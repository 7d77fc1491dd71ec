package mount

import (
	"fmt"
	"sort"
)

// Globals is the page-wide registry of window-level handles, such as the UI
// library object that backend-rendered inline markup calls directly.
//
// Registration is the only way a handle reaches the page. The first writer
// installs the defining script; registering the same handle with the same
// script again is a no-op; registering it with a different script fails.
// Like its Document, a Globals is not safe for concurrent use.
type Globals struct {
	doc     *Document
	handles map[string]string
}

func newGlobals(d *Document) *Globals {
	return &Globals{doc: d, handles: make(map[string]string)}
}

// Register installs handle name, defined by the script at src. If the page
// already loads src, that script is reused rather than loaded again. It
// reports whether the document changed.
func (g *Globals) Register(name, src string) (bool, error) {
	if err := g.Check(name, src); err != nil {
		return false, err
	}
	if _, ok := g.handles[name]; ok {
		return false, nil
	}

	g.handles[name] = src
	return g.doc.loadGlobal(name, src), nil
}

// Check reports the conflict Register would return, without registering.
func (g *Globals) Check(name, src string) error {
	if prev, ok := g.handles[name]; ok && prev != src {
		return fmt.Errorf("%w: %q is defined by %q, not %q", ErrGlobalConflict, name, prev, src)
	}
	return nil
}

// Lookup returns the script defining a handle.
func (g *Globals) Lookup(name string) (string, bool) {
	src, ok := g.handles[name]
	return src, ok
}

// Names returns the registered handles in sorted order.
func (g *Globals) Names() []string {
	names := make([]string, 0, len(g.handles))
	for n := range g.handles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
