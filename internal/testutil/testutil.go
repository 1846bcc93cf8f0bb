// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    model := testutil.RequireForestModel(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located, and returns the library path otherwise. It checks (in order): the
// TABPREDICT_ORT_LIB env var, then ORT_LIBRARY_PATH, then common system
// library paths.
func RequireONNXRuntime(tb testing.TB) string {
	tb.Helper()

	for _, env := range []string{"TABPREDICT_ORT_LIB", "ORT_LIBRARY_PATH"} {
		if p := os.Getenv(env); p != "" {
			_, err := os.Stat(p)
			if err == nil {
				return p
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return p
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set TABPREDICT_ORT_LIB or ORT_LIBRARY_PATH")
	return ""
}

// ForestModelPath is the committed random forest fixture exported by the
// training script, relative to the repository root.
func ForestModelPath() string {
	return filepath.Join("internal", "model", "testdata", "random_forest.onnx")
}

// RequireForestModel skips the test if the random forest fixture is not
// present, and returns its path otherwise. rootRel is the relative path from
// the calling package directory to the repository root (e.g. "../..").
func RequireForestModel(tb testing.TB, rootRel string) string {
	tb.Helper()

	p := filepath.Join(rootRel, ForestModelPath())
	if _, err := os.Stat(p); err != nil {
		tb.Skipf("random forest fixture not found at %q: %v", p, err)
	}
	return p
}
