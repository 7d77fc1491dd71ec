package frontend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/surveydesk/internal/frontend"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := frontend.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"analysis", "collector", "survey", "viewer"}, cfg.Names())
	assert.Equal(t, "/static/dist/", cfg.Base)
	assert.True(t, cfg.Manifest)
	assert.True(t, cfg.Server.StrictPort)
	assert.Equal(t, 3000, cfg.Server.Port)

	collector, ok := cfg.Entry("collector")
	require.True(t, ok)
	assert.Equal(t, "app-collector", collector.Anchor)
	assert.Equal(t, "collector-main.js", collector.Src)

	_, ok = cfg.Entry("missing")
	assert.False(t, ok)
}

func TestDefault_ReturnsIndependentCopies(t *testing.T) {
	t.Parallel()

	a := frontend.Default()
	b := frontend.Default()
	a.Entries[2].Styles[0] = "changed.css"

	assert.Equal(t, "bootstrap/dist/css/bootstrap.min.css", b.Entries[2].Styles[0])
	assert.Equal(t, "bootstrap/dist/css/bootstrap.min.css", a.Entries[3].Styles[0])
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("entries and server override defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := frontend.Parse([]byte(`
base: /assets/
entries:
  - name: collector
    src: collector-main.js
    anchor: "#app-collector"
    globals:
      bootstrap: bootstrap/dist/js/bootstrap.bundle.min.js
server:
  port: 5173
`))
		require.NoError(t, err)

		assert.Equal(t, "/assets/", cfg.Base)
		require.Len(t, cfg.Entries, 1)
		assert.Equal(t, "app-collector", cfg.Entries[0].Anchor, "leading # is stripped")
		assert.Equal(t, "bootstrap/dist/js/bootstrap.bundle.min.js", cfg.Entries[0].Globals["bootstrap"])
		assert.Equal(t, 5173, cfg.Server.Port)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset fields keep defaults")
		assert.True(t, cfg.Server.StrictPort)
	})

	t.Run("no entries falls back to the canonical four", func(t *testing.T) {
		t.Parallel()

		cfg, err := frontend.Parse([]byte("manifest: false\n"))
		require.NoError(t, err)

		assert.False(t, cfg.Manifest)
		assert.Len(t, cfg.Entries, 4)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := frontend.Parse([]byte("entries: [\n"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *frontend.Config)
		wantErr error
	}{
		{
			name: "duplicate entry name",
			mutate: func(c *frontend.Config) {
				c.Entries = append(c.Entries, frontend.Entry{Name: "survey", Src: "x.js", Anchor: "x"})
			},
			wantErr: frontend.ErrDuplicateEntry,
		},
		{
			name: "duplicate anchor",
			mutate: func(c *frontend.Config) {
				c.Entries = append(c.Entries, frontend.Entry{Name: "extra", Src: "x.js", Anchor: "app"})
			},
			wantErr: frontend.ErrDuplicateAnchor,
		},
		{
			name: "conflicting globals",
			mutate: func(c *frontend.Config) {
				c.Entries[0].Globals = map[string]string{"bootstrap": "a.js"}
				c.Entries[1].Globals = map[string]string{"bootstrap": "b.js"}
			},
			wantErr: frontend.ErrGlobalConflict,
		},
		{
			name:    "base without trailing slash",
			mutate:  func(c *frontend.Config) { c.Base = "/static/dist" },
			wantErr: frontend.ErrInvalid,
		},
		{
			name:    "port out of range",
			mutate:  func(c *frontend.Config) { c.Server.Port = 70000 },
			wantErr: frontend.ErrInvalid,
		},
		{
			name:    "missing src",
			mutate:  func(c *frontend.Config) { c.Entries[0].Src = "" },
			wantErr: frontend.ErrInvalid,
		},
		{
			name:    "style shadows another entry source",
			mutate:  func(c *frontend.Config) { c.Entries[2].Styles = append(c.Entries[2].Styles, "main.js") },
			wantErr: frontend.ErrInvalid,
		},
		{
			name:    "script shadows an entry source",
			mutate:  func(c *frontend.Config) { c.Entries[3].Scripts = []string{"collector-main.js"} },
			wantErr: frontend.ErrInvalid,
		},
		{
			name:    "missing anchor",
			mutate:  func(c *frontend.Config) { c.Entries[0].Anchor = "" },
			wantErr: frontend.ErrInvalid,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := frontend.Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}

	t.Run("identical globals across entries pass", func(t *testing.T) {
		t.Parallel()

		cfg := frontend.Default()
		cfg.Entries[0].Globals = map[string]string{"bootstrap": "a.js"}
		cfg.Entries[1].Globals = map[string]string{"bootstrap": "a.js"}
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "frontend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: src\noutDir: ../static/dist\n"), 0o600))

	cfg, err := frontend.Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "src"), cfg.Root)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "static", "dist"), cfg.OutDir)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "static", "dist", ".vite", "manifest.json"), cfg.ManifestFile())

	_, err = frontend.Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_CheckedInConfigMatchesDefault(t *testing.T) {
	t.Parallel()

	cfg, err := frontend.Load(filepath.Join("..", "..", "frontend", "frontend.yaml"))
	require.NoError(t, err)

	def := frontend.Default()
	assert.Equal(t, def.Entries, cfg.Entries)
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Base, cfg.Base)
	assert.Equal(t, def.EmptyOutDir, cfg.EmptyOutDir)
	assert.Equal(t, def.Manifest, cfg.Manifest)
	assert.Equal(t, "src", filepath.Base(cfg.Root))
}
