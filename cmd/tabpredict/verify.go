package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/model"
)

func newVerifyCmd() *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check pinned model checksums and run smoke inference",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			manifest := manifestPath
			if manifest == "" {
				manifest = cfg.Paths.ManifestPath
			}
			if manifest == "" {
				return fmt.Errorf("no manifest configured (pass --manifest or set paths.manifest_path)")
			}

			err = model.Verify(model.VerifyOptions{
				ManifestPath: manifest,
				Runtime:      cfg.Runtime,
				Stdout:       os.Stdout,
				Stderr:       os.Stderr,
			})
			if err != nil {
				return fmt.Errorf("model verify failed: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Path to model manifest.json (overrides config)")

	return cmd
}
