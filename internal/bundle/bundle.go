// Package bundle emits the per-entry assets and the manifest for a frontend
// configuration. Output names carry the logical entry name and a content
// hash, so identical inputs always produce identical output.
package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/manifest"
)

// ErrSourceMissing is returned when an entry or side-effect source is absent.
var ErrSourceMissing = errors.New("bundle: source missing")

const hashLen = 8

// Builder writes build output for one configuration.
type Builder struct {
	cfg *frontend.Config
	m   manifest.Manifest
}

// New returns a Builder for cfg.
func New(cfg *frontend.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build is shorthand for New(cfg).Build(ctx).
func Build(ctx context.Context, cfg *frontend.Config) (manifest.Manifest, error) {
	return New(cfg).Build(ctx)
}

// Build emits every entry and, when enabled, the manifest. Styles and
// scripts shared between entries are written once.
func (b *Builder) Build(ctx context.Context) (manifest.Manifest, error) {
	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bundle.Build: %w", err)
	}

	if b.cfg.EmptyOutDir {
		if err := os.RemoveAll(b.cfg.OutDir); err != nil {
			return nil, fmt.Errorf("bundle.Build: empty out dir: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(b.cfg.OutDir, b.cfg.AssetsDir), 0o755); err != nil {
		return nil, fmt.Errorf("bundle.Build: %w", err)
	}

	b.m = make(manifest.Manifest)

	for _, e := range b.cfg.Entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("bundle.Build: %w", err)
		}
		if err := b.emitEntry(e); err != nil {
			return nil, fmt.Errorf("bundle.Build(%s): %w", e.Name, err)
		}
	}

	if b.cfg.Manifest {
		if err := b.m.Write(b.cfg.ManifestFile()); err != nil {
			return nil, fmt.Errorf("bundle.Build: %w", err)
		}
	}

	log.Info().
		Int("entries", len(b.cfg.Entries)).
		Str("out_dir", b.cfg.OutDir).
		Bool("manifest", b.cfg.Manifest).
		Msg("build complete")

	return b.m, nil
}

func (b *Builder) emitEntry(e frontend.Entry) error {
	file, err := b.emit(e.Src, e.Name, ".js")
	if err != nil {
		return err
	}

	chunk := &manifest.Chunk{
		File:    file,
		Name:    e.Name,
		Src:     e.Src,
		IsEntry: true,
	}

	for _, style := range e.Styles {
		css, err := b.shared(style)
		if err != nil {
			return err
		}
		chunk.CSS = append(chunk.CSS, css)
	}

	for _, script := range e.Scripts {
		if _, err := b.shared(script); err != nil {
			return err
		}
		chunk.Imports = append(chunk.Imports, script)
	}

	for _, handle := range sortedKeys(e.Globals) {
		if _, err := b.shared(e.Globals[handle]); err != nil {
			return err
		}
	}

	b.m[e.Src] = chunk

	log.Debug().Str("entry", e.Name).Str("file", file).Msg("emitted entry")
	return nil
}

// shared emits a side-effect asset once and records it under its source
// path so that later entries and the resolver can find it.
func (b *Builder) shared(src string) (string, error) {
	if c, ok := b.m[src]; ok {
		return c.File, nil
	}

	ext := path.Ext(src)
	stem := strings.TrimSuffix(path.Base(src), ext)

	file, err := b.emit(src, stem, ext)
	if err != nil {
		return "", err
	}

	b.m[src] = &manifest.Chunk{File: file, Src: src}
	return file, nil
}

func (b *Builder) emit(src, stem, ext string) (string, error) {
	data, err := b.read(src)
	if err != nil {
		return "", err
	}

	file := path.Join(b.cfg.AssetsDir, fmt.Sprintf("%s-%s%s", stem, ContentHash(data), ext))
	if err := os.WriteFile(filepath.Join(b.cfg.OutDir, filepath.FromSlash(file)), data, 0o644); err != nil { //nolint:gosec // build output is world-readable
		return "", err
	}
	return file, nil
}

// read loads src from the source root. Bare package paths such as
// "bootstrap/dist/css/bootstrap.min.css" fall back to the node_modules
// directory next to the root.
func (b *Builder) read(src string) ([]byte, error) {
	rel := filepath.FromSlash(src)
	candidates := []string{
		filepath.Join(b.cfg.Root, rel),
		filepath.Join(filepath.Dir(b.cfg.Root), "node_modules", rel),
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src)
}

// ContentHash returns the short content hash used in emitted file names.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
