package devserver_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gosuda/surveydesk/internal/devserver"
	"github.com/gosuda/surveydesk/internal/frontend"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

func newConfig(t *testing.T) *frontend.Config {
	t.Helper()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "components"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "collector-main.js"), []byte("mount('#app-collector')\n"), 0o600))

	css := filepath.Join(dir, "node_modules", "bootstrap", "dist", "css", "bootstrap.min.css")
	require.NoError(t, os.MkdirAll(filepath.Dir(css), 0o755))
	require.NoError(t, os.WriteFile(css, []byte("body{}\n"), 0o600))

	cfg := frontend.Default()
	cfg.Root = src
	return cfg
}

// occupy holds a loopback port for the duration of the test.
func occupy(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln.Addr().(*net.TCPAddr).Port
}

func TestListen_StrictPortInUseIsFatal(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Port = occupy(t)
	cfg.Server.StrictPort = true

	ln, err := devserver.New(cfg).Listen()

	require.ErrorIs(t, err, devserver.ErrPortInUse)
	assert.Nil(t, ln)
	assert.Contains(t, err.Error(), strconv.Itoa(cfg.Server.Port))
}

func TestListen_NonStrictMovesToNextPort(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Port = occupy(t)
	cfg.Server.StrictPort = false

	ln, err := devserver.New(cfg).Listen()
	require.NoError(t, err)
	defer ln.Close()

	got := ln.Addr().(*net.TCPAddr).Port
	assert.Greater(t, got, cfg.Server.Port)
}

func TestListen_NonStrictStopsAtLastPort(t *testing.T) {
	cfg := newConfig(t)
	cfg.Server.Port = 65535
	cfg.Server.StrictPort = false

	// Hold the last port; if something else already does, the outcome is
	// the same.
	if held, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, "65535")); err == nil {
		t.Cleanup(func() { _ = held.Close() })
	}

	ln, err := devserver.New(cfg).Listen()

	require.ErrorIs(t, err, devserver.ErrPortInUse)
	assert.Nil(t, ln)
	assert.Contains(t, err.Error(), "65535-65535")
}

func TestListen_FreePort(t *testing.T) {
	cfg := newConfig(t)

	// Release the port, then bind it strictly.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Server.Port = probe.Addr().(*net.TCPAddr).Port
	require.NoError(t, probe.Close())

	ln, err := devserver.New(cfg).Listen()
	require.NoError(t, err)
	defer ln.Close()
	assert.Equal(t, cfg.Server.Port, ln.Addr().(*net.TCPAddr).Port)
}

func TestHandler(t *testing.T) {
	cfg := newConfig(t)
	h := devserver.New(cfg).Handler()

	get := func(path string, header http.Header) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range header {
			req.Header[k] = v
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	t.Run("serves entry source under base", func(t *testing.T) {
		rec := get("/static/dist/collector-main.js", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "mount('#app-collector')\n", rec.Body.String())
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	})

	t.Run("falls back to node_modules", func(t *testing.T) {
		rec := get("/static/dist/bootstrap/dist/css/bootstrap.min.css", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "body{}\n", rec.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		rec := get("/static/dist/nope.js", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("outside base", func(t *testing.T) {
		rec := get("/collector-main.js", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reload client", func(t *testing.T) {
		rec := get("/static/dist/@surveydesk/client.js", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "javascript")
		assert.Contains(t, rec.Body.String(), "WebSocket")
	})

	t.Run("cors for the backend origin", func(t *testing.T) {
		rec := get("/static/dist/collector-main.js", http.Header{"Origin": {cfg.Server.Origin}})
		assert.Equal(t, cfg.Server.Origin, rec.Header().Get("Access-Control-Allow-Origin"))

		rec = get("/static/dist/collector-main.js", http.Header{"Origin": {"http://evil.example"}})
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

type recordingNotifier struct {
	events chan redisstore.AssetEvent
}

func (n *recordingNotifier) PublishAsset(_ context.Context, base string, e redisstore.AssetEvent) error {
	if base != "/static/dist/" {
		panic("unexpected base " + base)
	}
	n.events <- e
	return nil
}

func TestWatch_PublishesChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := newConfig(t)
	notifier := &recordingNotifier{events: make(chan redisstore.AssetEvent, 16)}
	srv := devserver.New(cfg, devserver.WithNotifier(notifier), devserver.WithDebounce(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Watch(ctx) }()

	target := filepath.Join(cfg.Root, "components", "Grid.vue")

	var got redisstore.AssetEvent
	require.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte(time.Now().String()), 0o600)
		select {
		case got = <-notifier.events:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, redisstore.EventChanged, got.Type)
	assert.Equal(t, "components/Grid.vue", got.Path)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_MissingRoot(t *testing.T) {
	cfg := newConfig(t)
	cfg.Root = filepath.Join(t.TempDir(), "missing")

	err := devserver.New(cfg).Watch(context.Background())
	require.Error(t, err)
}
