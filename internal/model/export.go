package model

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ExportOptions configures training and exporting a random forest to ONNX
// via the scripts/export_random_forest.py helper.
type ExportOptions struct {
	DataCSV    string
	OutPath    string
	Estimators int
	MaxDepth   int
	PythonBin  string
	Stdout     io.Writer
	Stderr     io.Writer
}

// Export trains a random forest on a feature CSV and writes the converted
// ONNX model. It requires a Python interpreter with sklearn, skl2onnx and
// onnx installed.
func Export(opts ExportOptions) error {
	if opts.DataCSV == "" {
		return fmt.Errorf("data csv is required")
	}
	if opts.OutPath == "" {
		return fmt.Errorf("out path is required")
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	pythonBin := opts.PythonBin
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if err := validateExportTooling(pythonBin); err != nil {
		return err
	}

	scriptPath, err := resolveScriptPath(filepath.Join("scripts", "export_random_forest.py"))
	if err != nil {
		return fmt.Errorf("resolve export helper: %w", err)
	}

	args := []string{scriptPath, "--data-csv", opts.DataCSV, "--out", opts.OutPath}
	if opts.Estimators > 0 {
		args = append(args, "--estimators", strconv.Itoa(opts.Estimators))
	}
	if opts.MaxDepth > 0 {
		args = append(args, "--max-depth", strconv.Itoa(opts.MaxDepth))
	}

	cmd := exec.Command(pythonBin, args...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run export helper: %w", err)
	}

	return nil
}

// resolveScriptPath finds a helper script relative to the working directory
// or the repository root, so exports work from package test directories too.
func resolveScriptPath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("script path is required")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	paths := []string{
		filepath.Join(cwd, rel),
		filepath.Join(cwd, "..", "..", rel),
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Clean(p), nil
		}
	}

	return "", fmt.Errorf("script %q not found from %s", rel, cwd)
}

func validateExportTooling(pythonBin string) error {
	if _, err := exec.LookPath(pythonBin); err != nil {
		return fmt.Errorf("python interpreter %q not found: %w", pythonBin, err)
	}

	check := exec.Command(pythonBin, "-c", "import sklearn, skl2onnx, onnx")
	check.Stdout = io.Discard
	check.Stderr = io.Discard
	if err := check.Run(); err != nil {
		return fmt.Errorf("python tooling dependencies missing for export (need sklearn, skl2onnx, onnx): %w", err)
	}
	return nil
}
