package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/dataset"
	"github.com/example/go-tab-predict/internal/onnx"
	"github.com/example/go-tab-predict/internal/predict"
)

func newPredictCmd() *cobra.Command {
	var (
		values     []float32
		shape      []int64
		inputName  string
		csvPath    string
		allOutputs bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a forward pass and print the prediction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if csvPath != "" && len(values) > 0 {
				return fmt.Errorf("--csv and --values are mutually exclusive")
			}

			name := inputName
			if name == "" {
				name = cfg.Predict.InputName
			}

			p, err := predict.New(predict.Config{
				ModelName: "model",
				ModelPath: cfg.Paths.ModelPath,
				Runtime:   cfg.Runtime,
			})
			if err != nil {
				return err
			}
			defer p.Close()

			printSignature(os.Stdout, p.Signature())

			if csvPath != "" {
				return predictCSV(cmd.Context(), p, csvPath, name, allOutputs)
			}

			if len(values) == 0 {
				values = []float32{1, 2, 3, 4}
			}

			result, err := p.Predict(cmd.Context(), predict.Request{
				InputName: name,
				Values:    values,
				Shape:     shape,
			})
			if err != nil {
				return err
			}

			if allOutputs {
				printOutputs(os.Stdout, result)
			}

			pred, err := result.Scalar()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(os.Stdout, "Prediction: %g\n", pred)

			return nil
		},
	}

	cmd.Flags().Float32SliceVar(&values, "values", nil, "Feature values for the forward pass (default 1,2,3,4)")
	cmd.Flags().Int64SliceVar(&shape, "shape", nil, "Input tensor shape (default: a single row, 1 x len(values))")
	cmd.Flags().StringVar(&inputName, "input-name", "", "Model input to bind (defaults to the model's sole input)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Predict every row of a feature CSV instead of --values")
	cmd.Flags().BoolVar(&allOutputs, "all-outputs", false, "Print values for every model output")

	return cmd
}

// printSignature reports the model's declared inputs and outputs in
// declaration order.
func printSignature(w io.Writer, sig onnx.Signature) {
	_, _ = fmt.Fprintf(w, "Number of inputs = %d\n", len(sig.Inputs))
	for i, in := range sig.Inputs {
		_, _ = fmt.Fprintf(w, "Input %d : name=%s\n", i, in.Name)
	}
	_, _ = fmt.Fprintf(w, "Number of outputs = %d\n", len(sig.Outputs))
	for i, out := range sig.Outputs {
		_, _ = fmt.Fprintf(w, "Output %d : name=%s\n", i, out.Name)
	}
}

func printOutputs(w io.Writer, result predict.Result) {
	for _, out := range result.Outputs {
		if out.Tensor == nil {
			_, _ = fmt.Fprintf(w, "%s: (non-tensor output)\n", out.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s: shape=%v values=%v\n", out.Name, out.Tensor.Shape(), out.Tensor.Data())
	}
}

func predictCSV(ctx context.Context, p *predict.Predictor, path, inputName string, allOutputs bool) error {
	ds, err := dataset.Load(path)
	if err != nil {
		return err
	}

	for i, row := range ds.Rows {
		result, err := p.Predict(ctx, predict.Request{
			InputName: inputName,
			Values:    row,
			Shape:     []int64{1, int64(ds.FeatureCount())},
		})
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}

		if allOutputs {
			printOutputs(os.Stdout, result)
		}

		pred, err := result.Scalar()
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Row %d prediction: %g\n", i+1, pred)
	}

	return nil
}
