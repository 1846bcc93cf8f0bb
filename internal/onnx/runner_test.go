package onnx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// forestModelPath points at the sklearn random-forest testdata model
// (4 float32 features in, int64 label + probability map out). The model is
// not committed; tests skip when it is absent.
func forestModelPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join("..", "model", "testdata", "random_forest.onnx")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("forest model not found: %v", err)
	}
	return path
}

func ortLibForTest(t *testing.T) string {
	t.Helper()

	libPath := os.Getenv("TABPREDICT_ORT_LIB")
	if libPath == "" {
		libPath = os.Getenv("ORT_LIBRARY_PATH")
	}
	if libPath == "" {
		t.Skip("no ORT library available; set TABPREDICT_ORT_LIB")
	}
	return libPath
}

func TestRunnerRoundTrip(t *testing.T) {
	libPath := ortLibForTest(t)
	modelPath := forestModelPath(t)

	runner, err := NewRunner("forest", modelPath, RunnerConfig{
		LibraryPath:    libPath,
		APIVersion:     23,
		IntraOpThreads: 1,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	sig := runner.Signature()
	if len(sig.Inputs) != 1 {
		t.Fatalf("expected 1 input, got %d", len(sig.Inputs))
	}
	if sig.Inputs[0].Name != "float_input" {
		t.Fatalf("expected input float_input, got %q", sig.Inputs[0].Name)
	}

	input, err := NewTensor([]float32{1.0, 2.0, 3.0, 4.0}, []int64{1, 4})
	if err != nil {
		t.Fatalf("NewTensor: %v", err)
	}

	outputs, err := runner.Run(context.Background(), map[string]*Tensor{"float_input": input})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	label, ok := outputs["output_label"]
	if !ok || label == nil {
		t.Fatal("missing output_label tensor in results")
	}

	if _, err := ExtractInt64(label); err != nil {
		t.Fatalf("ExtractInt64: %v", err)
	}
}

func TestRunnerMissingModelFile(t *testing.T) {
	libPath := ortLibForTest(t)

	_, err := NewRunner("missing", filepath.Join(t.TempDir(), "missing.onnx"), RunnerConfig{
		LibraryPath: libPath,
		APIVersion:  23,
	})
	if err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestRunnerCloseIsIdempotent(t *testing.T) {
	libPath := ortLibForTest(t)
	modelPath := forestModelPath(t)

	runner, err := NewRunner("forest", modelPath, RunnerConfig{LibraryPath: libPath, APIVersion: 23})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	runner.Close()
	runner.Close() // second close should not panic
}
