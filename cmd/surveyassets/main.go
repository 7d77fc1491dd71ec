// Command surveyassets builds the frontend entries, runs the development
// asset server and inspects the build manifest.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/surveydesk/internal/frontend"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

type options struct {
	configPath string
	logLevel   string
	logFormat  string
	redisAddr  string
	redisPass  string
	redisDB    int
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("surveyassets failed")
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "surveyassets",
		Short:         "Build and serve the survey frontend entries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", envOr("SURVEYDESK_FRONTEND_CONFIG", "frontend/frontend.yaml"), "frontend configuration file")
	flags.StringVar(&opts.logLevel, "log-level", envOr("SURVEYDESK_LOG_LEVEL", "info"), "log level")
	flags.StringVar(&opts.logFormat, "log-format", envOr("SURVEYDESK_LOG_FORMAT", "text"), "log format: json or text")
	flags.StringVar(&opts.redisAddr, "redis-addr", os.Getenv("SURVEYDESK_REDIS_ADDR"), "Redis address for reload events; empty disables")
	flags.StringVar(&opts.redisPass, "redis-password", os.Getenv("SURVEYDESK_REDIS_PASSWORD"), "Redis password")
	flags.IntVar(&opts.redisDB, "redis-db", 0, "Redis database")

	root.AddCommand(newBuildCmd(opts), newDevCmd(opts), newManifestCmd(opts))
	return root
}

func setupLogging(cmd *cobra.Command, opts *options) error {
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	out := cmd.ErrOrStderr()
	if opts.logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
	return nil
}

func (o *options) loadConfig() (*frontend.Config, error) {
	return frontend.Load(o.configPath)
}

// connectRedis returns nil when no address is configured.
func (o *options) connectRedis(ctx context.Context) (*redisstore.PubSub, error) {
	if o.redisAddr == "" {
		return nil, nil //nolint:nilnil // bus is optional
	}
	return redisstore.New(ctx, o.redisAddr, o.redisPass, o.redisDB)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
