// Package doctor provides environment preflight checks for tabpredict.
package doctor

import (
	"fmt"
	"io"
	"os"

	"github.com/example/go-tab-predict/internal/model"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// DetectFunc locates the ONNX Runtime shared library, returning its path.
type DetectFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// DetectRuntime locates the ONNX Runtime shared library.
	DetectRuntime DetectFunc
	// ModelPath is the model file to verify on disk. Empty skips the check.
	ModelPath string
	// ManifestPath points at a model manifest to load and checksum. Empty
	// skips the check.
	ManifestPath string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- ONNX Runtime library --------------------------------------------
	if cfg.DetectRuntime == nil {
		fmt.Fprintf(w, "%s onnxruntime library: skipped\n", PassMark)
	} else {
		lib, err := cfg.DetectRuntime()
		if err != nil {
			res.fail(fmt.Sprintf("onnxruntime library: %v", err))
			fmt.Fprintf(w, "%s onnxruntime library: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnxruntime library: %s\n", PassMark, lib)
		}
	}

	// ---- model file -------------------------------------------------------
	if cfg.ModelPath != "" {
		if info, err := os.Stat(cfg.ModelPath); err != nil {
			res.fail(fmt.Sprintf("model file %q: %v", cfg.ModelPath, err))
			fmt.Fprintf(w, "%s model file %s: not found\n", FailMark, cfg.ModelPath)
		} else if info.Size() == 0 {
			res.fail(fmt.Sprintf("model file %q: empty", cfg.ModelPath))
			fmt.Fprintf(w, "%s model file %s: empty\n", FailMark, cfg.ModelPath)
		} else {
			fmt.Fprintf(w, "%s model file: %s (%d bytes)\n", PassMark, cfg.ModelPath, info.Size())
		}
	}

	// ---- manifest ---------------------------------------------------------
	if cfg.ManifestPath != "" {
		m, err := model.LoadManifest(cfg.ManifestPath)
		if err != nil {
			res.fail(fmt.Sprintf("manifest %q: %v", cfg.ManifestPath, err))
			fmt.Fprintf(w, "%s manifest %s: %v\n", FailMark, cfg.ManifestPath, err)
		} else {
			fmt.Fprintf(w, "%s manifest: %s (%d model(s))\n", PassMark, cfg.ManifestPath, len(m.Models))
			for i := range m.Models {
				mf := &m.Models[i]
				if err := model.CheckFile(mf); err != nil {
					res.fail(fmt.Sprintf("model %q: %v", mf.Name, err))
					fmt.Fprintf(w, "%s model %s: %v\n", FailMark, mf.Name, err)
				} else {
					fmt.Fprintf(w, "%s model %s: %s\n", PassMark, mf.Name, mf.Path)
				}
			}
		}
	}

	return res
}
