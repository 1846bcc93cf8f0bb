package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-tab-predict/internal/model"
)

func newExportCmd() *cobra.Command {
	var (
		dataCSV    string
		outPath    string
		estimators int
		maxDepth   int
		pythonBin  string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Train a random forest on a feature CSV and export it to ONNX",
		RunE: func(_ *cobra.Command, _ []string) error {
			return model.Export(model.ExportOptions{
				DataCSV:    dataCSV,
				OutPath:    outPath,
				Estimators: estimators,
				MaxDepth:   maxDepth,
				PythonBin:  pythonBin,
				Stdout:     os.Stdout,
				Stderr:     os.Stderr,
			})
		},
	}

	cmd.Flags().StringVar(&dataCSV, "data-csv", "sample_data.csv", "Training feature CSV with a trailing target column")
	cmd.Flags().StringVar(&outPath, "out", "models/model.onnx", "Output ONNX model path")
	cmd.Flags().IntVar(&estimators, "estimators", 10, "Number of trees")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 5, "Maximum tree depth")
	cmd.Flags().StringVar(&pythonBin, "python", "", "Python interpreter to run the export helper (default python3)")

	return cmd
}
