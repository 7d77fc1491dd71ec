package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/api/ws"
	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/config"
	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/mount"
	"github.com/gosuda/surveydesk/internal/server/middleware"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	pages      *Pages
	cfg        *config.Config
}

// New creates a Server with all routes wired.
// pubsub may be nil, in which case /ws/assets is not served. static may be
// nil when the dev server serves assets; otherwise it holds the build output
// and is served under the frontend base path.
func New(ctx context.Context, cfg *config.Config, fe *frontend.Config, resolver assets.Resolver, pubsub ws.Subscriber, static fs.FS) (*Server, error) {
	pages, err := NewPages(mount.NewCoordinator(fe, resolver))
	if err != nil {
		return nil, fmt.Errorf("server.New: %w", err)
	}

	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", MountFailuresHeader},
		MaxAge:         300,
	}).Handler)

	s := &Server{
		router: router,
		pages:  pages,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.Server.RateLimit, cfg.Server.RateBurst))

		apiConfig := huma.DefaultConfig("SurveyDesk Assets API", "1.0.0")
		apiConfig.Servers = []*huma.Server{
			{URL: "/api/v1"},
		}
		api := humachi.New(r, apiConfig)
		registerAPIRoutes(api, fe, resolver)
	})

	// Reload events from the asset build, relayed over WebSocket.
	if pubsub != nil {
		hub := ws.NewHub(pubsub, redisstore.AssetsChannel(fe.Base), originHosts(cfg.Server.CORSOrigins))
		router.Route("/ws", func(r chi.Router) {
			registerWSRoutes(r, hub)
		})
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if static != nil {
		router.Handle(fe.Base+"*", http.StripPrefix(fe.Base, staticFileServer(static, fe.AssetsDir)))
		log.Info().Str("base", fe.Base).Msg("serving built assets")
	}

	registerPageRoutes(router, pages)

	return s, nil
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// originHosts converts CORS origins to WebSocket origin patterns.
func originHosts(origins []string) []string {
	var hosts []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
