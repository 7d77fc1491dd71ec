// Package devserver serves frontend sources unbundled for local development.
//
// The backend renders pages that load entry modules straight from this
// server, so it runs on a fixed, cross-origin address. That address is part
// of the backend's configuration: with strict port enabled the server
// refuses to start on any other port.
package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/api/ws"
	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/frontend"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

// ErrPortInUse is returned by Listen when strict port is on and the
// configured port is taken.
var ErrPortInUse = errors.New("devserver: port already in use")

// maxPortAttempts bounds the search for a free port without strict port.
const maxPortAttempts = 10

const maxPort = 65535

// socketPath is the reload channel path under base.
const socketPath = "@surveydesk/ws"

//go:embed client.js
var clientJS []byte

// Notifier receives source change events, typically the Redis reload bus.
type Notifier interface {
	PublishAsset(ctx context.Context, base string, e redisstore.AssetEvent) error
}

// Option configures a Server.
type Option func(*Server)

// WithNotifier forwards change events to n in addition to local clients.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithDebounce sets the quiet period before a burst of file events is
// reported as one change.
func WithDebounce(d time.Duration) Option {
	return func(s *Server) { s.debounce = d }
}

// Server is the development asset server.
type Server struct {
	cfg      *frontend.Config
	notifier Notifier
	debounce time.Duration

	clients *ws.Broadcaster
	hub     *ws.Hub
	router  chi.Router
}

// New creates a Server for cfg.
func New(cfg *frontend.Config, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		debounce: 100 * time.Millisecond,
		clients:  ws.NewBroadcaster(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.hub = ws.NewHub(s.clients, redisstore.AssetsChannel(cfg.Base), originPatterns(cfg.Server.Origin))
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(s.cfg.Server.Origin),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		MaxAge:         300,
	}).Handler)

	base := s.cfg.Base
	r.Get(base+assets.ClientPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(clientJS)
	})
	r.Get(base+socketPath, s.hub.ServeAssets)

	files := http.StripPrefix(base, noCache(http.FileServerFS(newSourceFS(s.cfg.Root))))
	r.Get(base+"*", files.ServeHTTP)
	r.Head(base+"*", files.ServeHTTP)

	return r
}

// Listen binds the configured address. With strict port a taken port is
// fatal; otherwise the next free port is used and logged.
func (s *Server) Listen() (net.Listener, error) {
	host, port := s.cfg.Server.Host, s.cfg.Server.Port

	attempts := 1
	if !s.cfg.Server.StrictPort {
		attempts = min(maxPortAttempts, maxPort-port+1)
	}

	var lastErr error
	for i := range attempts {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				log.Warn().Int("configured", port).Int("port", port+i).Msg("dev server port in use, using next free port")
			}
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("devserver.Listen(%s): %w", addr, err)
		}
		lastErr = err
	}

	if s.cfg.Server.StrictPort {
		return nil, fmt.Errorf("%w: %s (strict port): %w", ErrPortInUse, s.cfg.Server.Addr(), lastErr)
	}
	return nil, fmt.Errorf("%w: no free port in %d-%d: %w", ErrPortInUse, port, port+attempts-1, lastErr)
}

// Serve serves HTTP on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", ln.Addr().String()).Str("root", s.cfg.Root).Str("base", s.cfg.Base).Msg("dev server listening")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("devserver.Serve: %w", err)
	}
	return nil
}

// ListenAndServe binds and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) publish(ctx context.Context, e redisstore.AssetEvent) {
	_ = s.clients.Publish(ctx, "", e.Marshal())

	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishAsset(ctx, s.cfg.Base, e); err != nil {
		log.Error().Err(err).Msg("publish asset event")
	}
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func allowedOrigins(origin string) []string {
	if origin == "" {
		return []string{"*"}
	}
	return []string{origin}
}

func originPatterns(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
