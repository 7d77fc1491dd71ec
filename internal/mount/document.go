// Package mount attaches frontend entries to backend-rendered pages.
//
// A page exposes one anchor element per application it wants mounted. The
// coordinator finds each anchor, injects the entry's stylesheets and
// scripts into the head, and marks the anchor with a binding id. Everything
// it injects is idempotent: loading the same stylesheet, script or global
// handle twice leaves a single copy in the document.
package mount

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attributes written on a bound anchor.
const (
	AttrEntry  = "data-mount-entry"
	AttrID     = "data-mount-id"
	AttrGlobal = "data-global"
)

// Document is a parsed page plus the mount state found in or added to it.
// A Document is not safe for concurrent use; each request parses its own.
type Document struct {
	root *html.Node
	head *html.Node

	styles   map[string]bool
	scripts  map[string]*html.Node
	bindings map[string]Binding
	globals  *Globals
}

// Parse reads an HTML page. Stylesheets, scripts, global registrations and
// bindings already present in the markup are recorded so that mounting
// never duplicates them.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("mount.Parse: %w", err)
	}

	d := &Document{
		root:     root,
		styles:   make(map[string]bool),
		scripts:  make(map[string]*html.Node),
		bindings: make(map[string]Binding),
	}
	d.globals = newGlobals(d)

	walk(root, func(n *html.Node) {
		switch n.DataAtom {
		case atom.Head:
			if d.head == nil {
				d.head = n
			}
		case atom.Link:
			if attr(n, "rel") == "stylesheet" {
				d.styles[attr(n, "href")] = true
			}
		case atom.Script:
			if src := attr(n, "src"); src != "" {
				if d.scripts[src] == nil {
					d.scripts[src] = n
				}
				if name := attr(n, AttrGlobal); name != "" {
					d.globals.handles[name] = src
				}
			}
		}
		if entry := attr(n, AttrEntry); entry != "" {
			d.bindings[entry] = Binding{Entry: entry, Anchor: attr(n, "id"), ID: attr(n, AttrID)}
		}
	})

	if d.head == nil {
		return nil, fmt.Errorf("mount.Parse: %w", ErrNoHead)
	}
	return d, nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("mount.Document.Render: %w", err)
	}
	return nil
}

// String renders the document, for logging and tests.
func (d *Document) String() string {
	var sb strings.Builder
	_ = d.Render(&sb)
	return sb.String()
}

// Anchors returns every element whose id equals id.
func (d *Document) Anchors(id string) []*html.Node {
	var out []*html.Node
	walk(d.root, func(n *html.Node) {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			out = append(out, n)
		}
	})
	return out
}

// Globals returns the document's global handle registry.
func (d *Document) Globals() *Globals { return d.globals }

// Binding returns the binding for an entry, if it is mounted.
func (d *Document) Binding(entry string) (Binding, bool) {
	b, ok := d.bindings[entry]
	return b, ok
}

// LoadStyle adds a stylesheet link unless one with the same href exists.
// It reports whether the document changed.
func (d *Document) LoadStyle(href string) bool {
	if d.styles[href] {
		return false
	}
	d.styles[href] = true
	d.head.AppendChild(element(atom.Link, "rel", "stylesheet", "href", href))
	return true
}

// LoadModule adds a module script unless a script with the same src exists,
// whatever its type.
func (d *Document) LoadModule(src string) bool {
	if d.scripts[src] != nil {
		return false
	}
	n := element(atom.Script, "type", "module", "src", src)
	d.scripts[src] = n
	d.head.AppendChild(n)
	return true
}

// loadGlobal makes src a classic script marked as defining name. A script
// already on the page for src is reused: a module script is turned into a
// classic one so the file still executes exactly once.
func (d *Document) loadGlobal(name, src string) bool {
	n := d.scripts[src]
	if n == nil {
		n = element(atom.Script, "src", src, AttrGlobal, name)
		d.scripts[src] = n
		d.head.AppendChild(n)
		return true
	}

	changed := false
	if attr(n, "type") == "module" {
		removeAttr(n, "type")
		changed = true
	}
	if attr(n, AttrGlobal) == "" {
		setAttr(n, AttrGlobal, name)
		changed = true
	}
	return changed
}

func element(a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func attr(n *html.Node, key string) string {
	if n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
