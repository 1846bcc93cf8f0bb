package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/onnx"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the model's runtime and signature without running inference",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			info, err := onnx.Bootstrap(cfg.Runtime)
			if err != nil {
				return err
			}

			runner, err := onnx.NewRunner("inspect", cfg.Paths.ModelPath, onnx.RunnerConfig{
				LibraryPath:    info.LibraryPath,
				APIVersion:     cfg.Runtime.ORTAPIVersion,
				IntraOpThreads: cfg.Runtime.Threads,
			})
			if err != nil {
				return err
			}
			defer runner.Close()

			_, _ = fmt.Fprintf(os.Stdout, "model: %s\n", runner.Path())
			_, _ = fmt.Fprintf(os.Stdout, "runtime: %s (version %s)\n", info.LibraryPath, info.Version)
			printSignature(os.Stdout, runner.Signature())

			return nil
		},
	}

	return cmd
}
