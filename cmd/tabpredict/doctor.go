package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/doctor"
	"github.com/example/go-tab-predict/internal/model"
	"github.com/example/go-tab-predict/internal/onnx"
)

func newDoctorCmd() *cobra.Command {
	var smoke bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime and model checks",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg := doctor.Config{
				DetectRuntime: func() (string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return "", err
					}
					return info.LibraryPath, nil
				},
				ModelPath:    cfg.Paths.ModelPath,
				ManifestPath: cfg.Paths.ManifestPath,
			}

			result := doctor.Run(dcfg, os.Stdout)

			// Smoke inference as an additional opt-in check. It needs both a
			// manifest and a loadable ONNX Runtime, so doctor stays usable on
			// machines with neither.
			if smoke {
				if cfg.Paths.ManifestPath == "" {
					_, _ = fmt.Fprintf(os.Stdout, "%s smoke inference: skipped (no manifest configured)\n", doctor.PassMark)
				} else {
					verifyErr := model.Verify(model.VerifyOptions{
						ManifestPath: cfg.Paths.ManifestPath,
						Runtime:      cfg.Runtime,
						Stdout:       os.Stdout,
						Stderr:       os.Stderr,
					})
					if verifyErr != nil {
						result.AddFailure(fmt.Sprintf("smoke inference: %v", verifyErr))
						_, _ = fmt.Fprintf(os.Stdout, "%s smoke inference: %v\n", doctor.FailMark, verifyErr)
					} else {
						_, _ = fmt.Fprintf(os.Stdout, "%s smoke inference: ok\n", doctor.PassMark)
					}
				}
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(os.Stdout, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&smoke, "smoke", false, "Also run a zero-input smoke inference for each pinned model")

	return cmd
}
