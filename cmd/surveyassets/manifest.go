package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gosuda/surveydesk/internal/frontend"
	"github.com/gosuda/surveydesk/internal/manifest"
)

func newManifestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "manifest [entry]",
		Short: "Print the files of each built entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			m, err := manifest.Load(os.DirFS(cfg.OutDir), frontend.ManifestPath)
			if err != nil {
				return err
			}

			var out any = m.Index()
			if len(args) == 1 {
				files, err := m.Files(args[0])
				if err != nil {
					return err
				}
				out = files
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("manifest: %w", err)
			}
			return nil
		},
	}
}
