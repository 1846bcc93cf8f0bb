package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/bench"
	"github.com/example/go-tab-predict/internal/predict"
)

func newBenchCmd() *cobra.Command {
	var (
		values       []float32
		shape        []int64
		inputName    string
		runs         int
		format       string
		latencyLimit time.Duration
		checkStable  bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark inference latency",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			if len(values) == 0 {
				values = []float32{1, 2, 3, 4}
			}

			name := inputName
			if name == "" {
				name = cfg.Predict.InputName
			}

			p, err := predict.New(predict.Config{
				ModelName: "bench",
				ModelPath: cfg.Paths.ModelPath,
				Runtime:   cfg.Runtime,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			results, err := runBench(cmd.Context(), p, predict.Request{
				InputName: name,
				Values:    values,
				Shape:     shape,
			}, runs)
			if err != nil {
				return err
			}

			durations := make([]time.Duration, len(results))
			for i, r := range results {
				durations[i] = r.Duration
			}
			stats := bench.ComputeStats(durations)

			switch format {
			case "json":
				bench.FormatJSON(results, stats, os.Stdout)
			default:
				bench.FormatTable(results, stats, os.Stdout)
			}

			if checkStable {
				if err := bench.CheckDeterministic(results); err != nil {
					return fmt.Errorf("predictions not deterministic: %w", err)
				}
			}

			return bench.CheckLatencyThreshold(stats.Mean, latencyLimit)
		},
	}

	cmd.Flags().Float32SliceVar(&values, "values", nil, "Feature values for each run (default 1,2,3,4)")
	cmd.Flags().Int64SliceVar(&shape, "shape", nil, "Input tensor shape (default: a single row, 1 x len(values))")
	cmd.Flags().StringVar(&inputName, "input-name", "", "Model input to bind (defaults to the model's sole input)")
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of inference runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&latencyLimit, "latency-threshold", 0, "Exit non-zero if mean latency exceeds this duration (0 = disabled)")
	cmd.Flags().BoolVar(&checkStable, "check-deterministic", true, "Exit non-zero if runs disagree on the prediction")

	return cmd
}

func runBench(ctx context.Context, p *predict.Predictor, req predict.Request, runs int) ([]bench.RunResult, error) {
	results := make([]bench.RunResult, 0, runs)

	for i := range runs {
		start := time.Now()
		result, err := p.Predict(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("run %d failed: %w", i+1, err)
		}
		dur := time.Since(start)

		pred, err := result.Scalar()
		if err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}

		results = append(results, bench.RunResult{
			Index:      i,
			Cold:       i == 0,
			Duration:   dur,
			Prediction: float32(pred),
		})
	}

	return results, nil
}
