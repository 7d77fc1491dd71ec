// Package manifest reads and writes the build manifest: the mapping from
// source modules to emitted, content-hashed files that the backend uses to
// reference assets without hard-coding their names.
//
// The on-disk format is the one Vite emits under .vite/manifest.json, so a
// manifest produced by either the Go builder or a Vite build can be served.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Sentinel errors.
var (
	// ErrEntryNotFound is returned when the manifest has no entry for a name.
	ErrEntryNotFound = errors.New("manifest: entry not found")
	// ErrInvalid is returned when a decoded manifest has unusable chunks.
	ErrInvalid = errors.New("manifest: invalid chunk")
)

// Chunk is one manifest record.
type Chunk struct {
	File           string   `json:"file"`
	Name           string   `json:"name,omitempty"`
	Src            string   `json:"src,omitempty"`
	IsEntry        bool     `json:"isEntry,omitempty"`
	IsDynamicEntry bool     `json:"isDynamicEntry,omitempty"`
	CSS            []string `json:"css,omitempty"`
	Assets         []string `json:"assets,omitempty"`
	Imports        []string `json:"imports,omitempty"`
	DynamicImports []string `json:"dynamicImports,omitempty"`
}

// Manifest is keyed by source path (or a synthetic key for shared chunks).
type Manifest map[string]*Chunk

// Index maps each logical entry name to its emitted files.
type Index map[string][]string

// Parse decodes a manifest from r.
func Parse(r io.Reader) (Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest.Parse: %w", err)
	}
	if m == nil {
		m = Manifest{}
	}
	for _, key := range m.keys() {
		c := m[key]
		if c == nil {
			return nil, fmt.Errorf("manifest.Parse: %w: %q is null", ErrInvalid, key)
		}
		if c.File == "" {
			return nil, fmt.Errorf("manifest.Parse: %w: %q has no file", ErrInvalid, key)
		}
	}
	return m, nil
}

// Load reads the manifest at path inside fsys.
func Load(fsys fs.FS, path string) (Manifest, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest.Load: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Write stores the manifest at path, creating parent directories.
func (m Manifest) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("manifest.Write: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest.Write: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // build output is world-readable
		return fmt.Errorf("manifest.Write: %w", err)
	}
	return nil
}

// Entry finds the entry chunk for a logical name. Chunk names are checked
// first; a source key is accepted as a fallback so that templates may refer
// to an entry either way.
func (m Manifest) Entry(name string) (*Chunk, error) {
	for _, key := range m.keys() {
		c := m[key]
		if c.IsEntry && c.Name == name {
			return c, nil
		}
	}
	if c, ok := m[name]; ok && c.IsEntry {
		return c, nil
	}
	return nil, fmt.Errorf("manifest.Entry(%q): %w", name, ErrEntryNotFound)
}

// Files returns the emitted files for an entry: its script first, then every
// stylesheet reachable through static imports, without duplicates.
func (m Manifest) Files(name string) ([]string, error) {
	c, err := m.Entry(name)
	if err != nil {
		return nil, err
	}

	files := []string{c.File}
	seen := map[string]bool{c.File: true}
	for _, css := range m.CSS(c) {
		if !seen[css] {
			seen[css] = true
			files = append(files, css)
		}
	}
	return files, nil
}

// CSS collects stylesheets of c and of its static imports, depth first.
func (m Manifest) CSS(c *Chunk) []string {
	var out []string
	seen := make(map[string]bool)
	visited := make(map[*Chunk]bool)

	var walk func(*Chunk)
	walk = func(c *Chunk) {
		if visited[c] {
			return
		}
		visited[c] = true
		for _, key := range c.Imports {
			if dep, ok := m[key]; ok {
				walk(dep)
			}
		}
		for _, css := range c.CSS {
			if !seen[css] {
				seen[css] = true
				out = append(out, css)
			}
		}
	}
	walk(c)

	return out
}

// Imports returns the emitted files of the static imports of c, for
// modulepreload hints.
func (m Manifest) Imports(c *Chunk) []string {
	var out []string
	seen := make(map[string]bool)

	var walk func(*Chunk)
	walk = func(c *Chunk) {
		for _, key := range c.Imports {
			dep, ok := m[key]
			if !ok || seen[dep.File] {
				continue
			}
			seen[dep.File] = true
			out = append(out, dep.File)
			walk(dep)
		}
	}
	walk(c)

	return out
}

// Asset returns the emitted file for a non-entry source such as a shared
// stylesheet or a side-effect script.
func (m Manifest) Asset(src string) (string, error) {
	c, ok := m[src]
	if !ok {
		return "", fmt.Errorf("manifest.Asset(%q): %w", src, ErrEntryNotFound)
	}
	return c.File, nil
}

// Index builds the logical-name view of the manifest. Only entry chunks
// appear; entries without a name are indexed by their source key.
func (m Manifest) Index() Index {
	idx := make(Index)
	for _, key := range m.keys() {
		c := m[key]
		if !c.IsEntry {
			continue
		}
		name := c.Name
		if name == "" {
			name = key
		}
		files, err := m.Files(name)
		if err != nil {
			continue
		}
		idx[name] = files
	}
	return idx
}

// Names returns the logical entry names in sorted order.
func (idx Index) Names() []string {
	names := make([]string, 0, len(idx))
	for name := range idx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Manifest) keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
