package v1_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"testing/fstest"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/surveydesk/internal/api/v1"
	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/manifest"
)

const testManifest = `{
	"collector-main.js": {
		"file": "assets/collector-aaaa1111.js",
		"name": "collector",
		"src": "collector-main.js",
		"isEntry": true
	},
	"analysis-main.js": {
		"file": "assets/analysis-bbbb2222.js",
		"name": "analysis",
		"src": "analysis-main.js",
		"isEntry": true,
		"css": ["assets/bootstrap.min-cccc3333.css"]
	}
}`

func manifestResolver(t *testing.T) *assets.ManifestResolver {
	t.Helper()

	fsys := fstest.MapFS{frontend.ManifestPath: {Data: []byte(testManifest)}}
	r, err := assets.NewManifestResolver(fsys, frontend.ManifestPath, "/static/dist/")
	require.NoError(t, err)
	return r
}

// ---------------------------------------------------------------------------
// GET /entries
// ---------------------------------------------------------------------------

func TestListEntries(t *testing.T) {
	t.Parallel()

	cfg := frontend.Default()
	_, api := humatest.New(t)
	v1.RegisterEntryRoutes(api, cfg, assets.NewDevResolver(cfg, "http://127.0.0.1:3000"), nil)

	resp := api.Get("/entries")
	require.Equal(t, http.StatusOK, resp.Code)

	var got []v1.EntryResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got, 4)

	byName := make(map[string]v1.EntryResponse)
	for _, e := range got {
		byName[e.Name] = e
	}
	assert.Equal(t, "collector-main.js", byName["collector"].Src)
	assert.Equal(t, "app-collector", byName["collector"].Anchor)
	assert.Equal(t, "app", byName["survey"].Anchor)
	assert.NotEmpty(t, byName["analysis"].Styles)
	assert.NotNil(t, byName["survey"].Scripts)
}

// ---------------------------------------------------------------------------
// GET /entries/{name}/assets
// ---------------------------------------------------------------------------

func TestGetEntryAssets(t *testing.T) {
	t.Parallel()

	t.Run("dev_resolver", func(t *testing.T) {
		t.Parallel()

		cfg := frontend.Default()
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, cfg, assets.NewDevResolver(cfg, "http://127.0.0.1:3000"), nil)

		resp := api.Get("/entries/collector/assets")
		require.Equal(t, http.StatusOK, resp.Code)

		var got assets.Bundle
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, "collector", got.Entry)
		assert.Equal(t, []string{"http://127.0.0.1:3000/static/dist/collector-main.js"}, got.Scripts)
	})

	t.Run("manifest_resolver", func(t *testing.T) {
		t.Parallel()

		r := manifestResolver(t)
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, frontend.Default(), r, r)

		resp := api.Get("/entries/analysis/assets")
		require.Equal(t, http.StatusOK, resp.Code)

		var got assets.Bundle
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, []string{"/static/dist/assets/analysis-bbbb2222.js"}, got.Scripts)
		assert.Equal(t, []string{"/static/dist/assets/bootstrap.min-cccc3333.css"}, got.Styles)
	})

	t.Run("unknown_entry_404", func(t *testing.T) {
		t.Parallel()

		cfg := frontend.Default()
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, cfg, assets.NewDevResolver(cfg, "http://127.0.0.1:3000"), nil)

		resp := api.Get("/entries/designer/assets")
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "entry not configured")
	})

	t.Run("configured_but_not_built_404", func(t *testing.T) {
		t.Parallel()

		r := manifestResolver(t)
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, frontend.Default(), r, r)

		resp := api.Get("/entries/viewer/assets")
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Contains(t, resp.Body.String(), "missing from build manifest")
	})
}

// ---------------------------------------------------------------------------
// GET /manifest
// ---------------------------------------------------------------------------

func TestGetManifest(t *testing.T) {
	t.Parallel()

	t.Run("index", func(t *testing.T) {
		t.Parallel()

		r := manifestResolver(t)
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, frontend.Default(), r, r)

		resp := api.Get("/manifest")
		require.Equal(t, http.StatusOK, resp.Code)

		var got manifest.Index
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		assert.Equal(t, []string{"analysis", "collector"}, got.Names())
		assert.Equal(t, []string{"assets/analysis-bbbb2222.js", "assets/bootstrap.min-cccc3333.css"}, got["analysis"])
	})

	t.Run("dev_mode_404", func(t *testing.T) {
		t.Parallel()

		cfg := frontend.Default()
		_, api := humatest.New(t)
		v1.RegisterEntryRoutes(api, cfg, assets.NewDevResolver(cfg, "http://127.0.0.1:3000"), nil)

		resp := api.Get("/manifest")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
