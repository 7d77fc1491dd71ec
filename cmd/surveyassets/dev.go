package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/surveydesk/internal/devserver"
)

func newDevCmd(opts *options) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Serve sources unbundled with live reload",
		Long: `Serves the entry sources on the configured host and port for pages
rendered by the backend. With strict port on, an occupied port is an error
because the backend only knows the configured address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict-port") {
				cfg.Server.StrictPort = strict
			}

			pubsub, err := opts.connectRedis(cmd.Context())
			if err != nil {
				return err
			}

			var srvOpts []devserver.Option
			if pubsub != nil {
				defer pubsub.Close()
				srvOpts = append(srvOpts, devserver.WithNotifier(pubsub))
			}
			srv := devserver.New(cfg, srvOpts...)

			ln, err := srv.Listen()
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return srv.Serve(ctx, ln) })
			g.Go(func() error { return srv.Watch(ctx) })
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&strict, "strict-port", true, "fail instead of moving to the next free port")
	return cmd
}
