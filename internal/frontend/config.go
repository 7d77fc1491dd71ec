// Package frontend holds the build-time configuration of the multi-entry
// frontend: which logical entries exist, where their sources live, which DOM
// anchor each one mounts to and how the emitted assets are laid out.
package frontend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for configuration validation.
var (
	ErrDuplicateEntry  = errors.New("frontend: duplicate entry")
	ErrDuplicateAnchor = errors.New("frontend: duplicate anchor")
	ErrGlobalConflict  = errors.New("frontend: conflicting global registration")
	ErrInvalid         = errors.New("frontend: invalid configuration")
)

// Entry is one independently loadable single-page application.
type Entry struct {
	Name   string `yaml:"name"`
	Src    string `yaml:"src"`
	Anchor string `yaml:"anchor"`
	// Styles and Scripts are side-effect imports loaded with the entry.
	// They may be shared between entries.
	Styles  []string `yaml:"styles,omitempty"`
	Scripts []string `yaml:"scripts,omitempty"`
	// Globals maps a window-level handle name to the script that defines it.
	// This is the escape hatch for backend-rendered markup that needs to
	// call into the UI library without going through the application.
	Globals map[string]string `yaml:"globals,omitempty"`
}

// DevServer holds the cross-origin development server settings.
type DevServer struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	StrictPort bool   `yaml:"strictPort"`
	Origin     string `yaml:"origin"`
}

// Addr returns host:port for listening.
func (d DevServer) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// URL returns the origin the backend uses to reach the dev server.
func (d DevServer) URL() string {
	return fmt.Sprintf("http://%s:%d", d.Host, d.Port)
}

// Config is the full build configuration.
type Config struct {
	Root        string    `yaml:"root"`
	Base        string    `yaml:"base"`
	OutDir      string    `yaml:"outDir"`
	AssetsDir   string    `yaml:"assetsDir"`
	EmptyOutDir bool      `yaml:"emptyOutDir"`
	Manifest    bool      `yaml:"manifest"`
	Entries     []Entry   `yaml:"entries"`
	Server      DevServer `yaml:"server"`
}

// ManifestPath is the location of the manifest relative to OutDir.
const ManifestPath = ".vite/manifest.json"

// Default returns the canonical four-entry configuration.
func Default() *Config {
	bootstrap := []string{
		"bootstrap/dist/css/bootstrap.min.css",
		"bootstrap-icons/font/bootstrap-icons.css",
	}
	return &Config{
		Root:        "src",
		Base:        "/static/dist/",
		OutDir:      "../static/dist",
		AssetsDir:   "assets",
		EmptyOutDir: true,
		Manifest:    true,
		Entries: []Entry{
			{Name: "survey", Src: "main.js", Anchor: "app"},
			{Name: "collector", Src: "collector-main.js", Anchor: "app-collector"},
			{Name: "analysis", Src: "analysis-main.js", Anchor: "app-analysis", Styles: slices.Clone(bootstrap)},
			{Name: "viewer", Src: "viewer-main.js", Anchor: "app-viewer", Styles: slices.Clone(bootstrap)},
		},
		Server: DevServer{
			Host:       "127.0.0.1",
			Port:       3000,
			StrictPort: true,
			Origin:     "http://127.0.0.1:8080",
		},
	}
}

// Load reads a YAML configuration file. Relative root and outDir resolve
// against the directory holding the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontend.Load: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("frontend.Load(%s): %w", path, err)
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(dir, cfg.Root)
	}
	if !filepath.IsAbs(cfg.OutDir) {
		cfg.OutDir = filepath.Join(dir, cfg.OutDir)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults for unset scalar fields.
// Entries are never merged: a file that lists entries replaces them.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Entries = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("frontend.Parse: %w", err)
	}
	if len(cfg.Entries) == 0 {
		cfg.Entries = Default().Entries
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	for i := range c.Entries {
		c.Entries[i].Name = strings.TrimSpace(c.Entries[i].Name)
		c.Entries[i].Anchor = strings.TrimPrefix(strings.TrimSpace(c.Entries[i].Anchor), "#")
	}
	if c.AssetsDir == "" {
		c.AssetsDir = "assets"
	}
}

// Validate checks entry uniqueness and the configuration surface bounds.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Base, "/") || !strings.HasSuffix(c.Base, "/") {
		return fmt.Errorf("%w: base %q must start and end with '/'", ErrInvalid, c.Base)
	}
	if c.OutDir == "" {
		return fmt.Errorf("%w: outDir is required", ErrInvalid)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be 1-65535, got %d", ErrInvalid, c.Server.Port)
	}

	srcs := make(map[string]string, len(c.Entries))
	for _, e := range c.Entries {
		if e.Src != "" {
			srcs[e.Src] = e.Name
		}
	}

	names := make(map[string]struct{}, len(c.Entries))
	anchors := make(map[string]string, len(c.Entries))
	globals := make(map[string]string)

	for _, e := range c.Entries {
		if e.Name == "" {
			return fmt.Errorf("%w: entry with src %q has no name", ErrInvalid, e.Src)
		}
		if e.Src == "" {
			return fmt.Errorf("%w: entry %q has no src", ErrInvalid, e.Name)
		}
		if e.Anchor == "" {
			return fmt.Errorf("%w: entry %q has no anchor", ErrInvalid, e.Name)
		}
		if _, ok := names[e.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateEntry, e.Name)
		}
		names[e.Name] = struct{}{}

		if other, ok := anchors[e.Anchor]; ok {
			return fmt.Errorf("%w: #%s used by %q and %q", ErrDuplicateAnchor, e.Anchor, other, e.Name)
		}
		anchors[e.Anchor] = e.Name

		for _, p := range slices.Concat(e.Styles, e.Scripts) {
			if owner, ok := srcs[p]; ok {
				return fmt.Errorf("%w: entry %q loads %q, the source of entry %q", ErrInvalid, e.Name, p, owner)
			}
		}

		for handle, src := range e.Globals {
			if prev, ok := globals[handle]; ok && prev != src {
				return fmt.Errorf("%w: %q is %q and %q", ErrGlobalConflict, handle, prev, src)
			}
			globals[handle] = src
		}
	}

	return nil
}

// Entry returns the entry with the given logical name.
func (c *Config) Entry(name string) (Entry, bool) {
	for _, e := range c.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Names returns the logical entry names in sorted order.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// ManifestFile returns the absolute manifest location under OutDir.
func (c *Config) ManifestFile() string {
	return filepath.Join(c.OutDir, filepath.FromSlash(ManifestPath))
}
