// Package assets turns logical entry names into the URLs a page must load.
//
// Two resolvers exist: one backed by the build manifest for production, and
// one pointing at the development server, which serves sources unbundled.
package assets

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/manifest"
)

// ClientPath is the dev-server path of the live reload client, under base.
const ClientPath = "@surveydesk/client.js"

// Bundle lists the URLs for one entry.
type Bundle struct {
	Entry   string   `json:"entry"`
	Scripts []string `json:"scripts"`
	Styles  []string `json:"styles"`
	// Imports are module scripts the entry depends on. Modules execute once
	// per URL, so loading them ahead of the entry is safe.
	Imports []string `json:"imports,omitempty"`
}

// Resolver resolves entries and side-effect sources to URLs.
type Resolver interface {
	// Resolve returns the URLs of an entry's script and stylesheets.
	Resolve(name string) (*Bundle, error)
	// Asset returns the URL of a non-entry source such as a global script.
	Asset(src string) (string, error)
	// Client returns the live reload client URL, or "" when there is none.
	Client() string
}

// ManifestResolver serves content-hashed URLs from a build manifest.
type ManifestResolver struct {
	fsys fs.FS
	path string
	base string

	mu sync.RWMutex
	m  manifest.Manifest
}

// NewManifestResolver loads the manifest at path inside fsys. URLs are
// prefixed with base, which must end with '/'.
func NewManifestResolver(fsys fs.FS, path, base string) (*ManifestResolver, error) {
	r := &ManifestResolver{fsys: fsys, path: path, base: base}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the manifest. The previous manifest stays in effect when
// reading fails.
func (r *ManifestResolver) Reload() error {
	m, err := manifest.Load(r.fsys, r.path)
	if err != nil {
		return fmt.Errorf("assets.ManifestResolver.Reload: %w", err)
	}

	r.mu.Lock()
	r.m = m
	r.mu.Unlock()

	log.Debug().Int("chunks", len(m)).Str("path", r.path).Msg("manifest loaded")
	return nil
}

// Manifest returns the manifest currently in effect.
func (r *ManifestResolver) Manifest() manifest.Manifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.m
}

func (r *ManifestResolver) Resolve(name string) (*Bundle, error) {
	m := r.Manifest()

	c, err := m.Entry(name)
	if err != nil {
		return nil, fmt.Errorf("assets.Resolve: %w", err)
	}

	b := &Bundle{
		Entry:   name,
		Scripts: []string{r.base + c.File},
		Styles:  []string{},
	}
	for _, css := range m.CSS(c) {
		b.Styles = append(b.Styles, r.base+css)
	}
	for _, f := range m.Imports(c) {
		b.Imports = append(b.Imports, r.base+f)
	}
	return b, nil
}

func (r *ManifestResolver) Asset(src string) (string, error) {
	file, err := r.Manifest().Asset(src)
	if err != nil {
		return "", fmt.Errorf("assets.Asset: %w", err)
	}
	return r.base + file, nil
}

func (r *ManifestResolver) Client() string { return "" }

// Watch reloads the manifest for every event received until ctx is done or
// events is closed. Reload failures are logged and the old manifest kept.
func (r *ManifestResolver) Watch(ctx context.Context, events <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if err := r.Reload(); err != nil {
				log.Error().Err(err).Msg("manifest reload failed")
				continue
			}
			log.Info().Str("path", r.path).Msg("manifest reloaded")
		}
	}
}

// DevResolver points at the development server. Entries and their side
// effects resolve to unbundled sources under the dev server's base path.
type DevResolver struct {
	cfg    *frontend.Config
	origin string
}

// NewDevResolver returns a resolver for the dev server at origin
// (scheme://host:port, no trailing slash).
func NewDevResolver(cfg *frontend.Config, origin string) *DevResolver {
	return &DevResolver{cfg: cfg, origin: strings.TrimSuffix(origin, "/")}
}

func (r *DevResolver) url(src string) string {
	return r.origin + r.cfg.Base + strings.TrimPrefix(src, "/")
}

func (r *DevResolver) Resolve(name string) (*Bundle, error) {
	e, ok := r.cfg.Entry(name)
	if !ok {
		return nil, fmt.Errorf("assets.Resolve(%q): %w", name, manifest.ErrEntryNotFound)
	}

	b := &Bundle{
		Entry:   name,
		Scripts: []string{r.url(e.Src)},
		Styles:  []string{},
	}
	for _, s := range e.Styles {
		b.Styles = append(b.Styles, r.url(s))
	}
	for _, s := range e.Scripts {
		b.Imports = append(b.Imports, r.url(s))
	}
	return b, nil
}

func (r *DevResolver) Asset(src string) (string, error) {
	return r.url(src), nil
}

func (r *DevResolver) Client() string {
	return r.url(ClientPath)
}
