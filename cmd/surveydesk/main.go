package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/surveydesk/internal/api/ws"
	"github.com/gosuda/surveydesk/internal/assets"
	"github.com/gosuda/surveydesk/internal/config"
	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/server"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
	"github.com/gosuda/surveydesk/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.Log.Level)
	if cfg.Log.Format == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	fe := frontend.Default()
	if cfg.Frontend.ConfigPath != "" {
		fe, err = frontend.Load(cfg.Frontend.ConfigPath)
		if err != nil {
			return err
		}
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect to Redis when the reload bus is configured.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Enabled() {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	}

	resolver, static, err := buildResolver(ctx, cfg, fe, pubsub)
	if err != nil {
		return err
	}

	var sub ws.Subscriber
	if pubsub != nil {
		sub = pubsub
	}

	srv, err := server.New(ctx, cfg, fe, resolver, sub, static)
	if err != nil {
		return err
	}

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Bool("dev", cfg.Frontend.DevMode).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// buildResolver picks the dev server or the build manifest. In production it
// also returns the file system holding the build output, and follows rebuild
// events when the reload bus is available.
func buildResolver(ctx context.Context, cfg *config.Config, fe *frontend.Config, pubsub *redisstore.PubSub) (assets.Resolver, fs.FS, error) {
	if cfg.Frontend.DevMode {
		origin := cfg.Frontend.DevOrigin
		if origin == "" {
			origin = fe.Server.URL()
		}
		log.Info().Str("origin", origin).Msg("resolving assets from dev server")
		return assets.NewDevResolver(fe, origin), nil, nil
	}

	static := os.DirFS(fe.OutDir)
	if cfg.Frontend.Embedded {
		sub, err := fs.Sub(web.Assets, "dist")
		if err != nil {
			return nil, nil, fmt.Errorf("web assets: %w", err)
		}
		static = sub
	}

	resolver, err := assets.NewManifestResolver(static, frontend.ManifestPath, fe.Base)
	if err != nil {
		return nil, nil, err
	}

	if pubsub != nil {
		events, cleanup, err := pubsub.Subscribe(ctx, redisstore.AssetsChannel(fe.Base))
		if err != nil {
			return nil, nil, err
		}
		go func() {
			defer cleanup()
			resolver.Watch(ctx, events)
		}()
	}

	return resolver, static, nil
}
