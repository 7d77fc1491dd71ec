package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gosuda/surveydesk/internal/bundle"
	redisstore "github.com/gosuda/surveydesk/internal/store/redis"
)

func newBuildCmd(opts *options) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Emit every entry and the manifest into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.OutDir, err = filepath.Abs(outDir)
				if err != nil {
					return fmt.Errorf("build: %w", err)
				}
			}

			m, err := bundle.Build(ctx, cfg)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(m.Index()); err != nil {
				return fmt.Errorf("build: %w", err)
			}

			pubsub, err := opts.connectRedis(ctx)
			if err != nil {
				return err
			}
			if pubsub == nil {
				return nil
			}
			defer pubsub.Close()

			if err := pubsub.PublishAsset(ctx, cfg.Base, redisstore.NewAssetEvent(redisstore.EventRebuilt, "")); err != nil {
				return err
			}
			log.Info().Str("channel", redisstore.AssetsChannel(cfg.Base)).Msg("rebuild announced")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "override the configured output directory")
	return cmd
}
