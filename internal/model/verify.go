package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/go-tab-predict/internal/config"
	"github.com/example/go-tab-predict/internal/onnx"
)

type VerifyOptions struct {
	ManifestPath string
	Runtime      config.RuntimeConfig
	Stdout       io.Writer
	Stderr       io.Writer
}

var runSmoke = runSmokeImpl

// Verify checks every model pinned by a manifest: the file exists, its
// checksum matches when pinned, its declared inputs build valid tensors,
// and a zero-input forward pass succeeds.
func Verify(opts VerifyOptions) error {
	if opts.ManifestPath == "" {
		return errors.New("manifest path is required")
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	m, err := LoadManifest(opts.ManifestPath)
	if err != nil {
		return err
	}

	var failures []string
	for i := range m.Models {
		mf := &m.Models[i]
		if err := verifyModel(mf, opts); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "FAIL %s: %v\n", mf.Name, err)
			failures = append(failures, mf.Name)
			continue
		}
		_, _ = fmt.Fprintf(opts.Stdout, "PASS %s\n", mf.Name)
	}

	if len(failures) > 0 {
		return fmt.Errorf("verify failed for %d model(s): %s", len(failures), strings.Join(failures, ", "))
	}
	return nil
}

func verifyModel(mf *ModelFile, opts VerifyOptions) error {
	if err := CheckFile(mf); err != nil {
		return err
	}
	for _, in := range mf.Inputs {
		dtype, err := dtypeFromSpec(in.DType)
		if err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}
		if _, err := onnx.NewZeroTensor(dtype, in.Shape); err != nil {
			return fmt.Errorf("input %q invalid: %w", in.Name, err)
		}
	}
	return runSmoke(mf, opts)
}

// CheckFile verifies the model file exists and matches its pinned checksum.
func CheckFile(mf *ModelFile) error {
	sum, err := fileSHA256(mf.Path)
	if err != nil {
		return err
	}
	if mf.SHA256 != "" && sum != mf.SHA256 {
		return fmt.Errorf("%w: expected %s got %s", ErrChecksumMismatch, mf.SHA256, sum)
	}
	return nil
}

func runSmokeImpl(mf *ModelFile, opts VerifyOptions) error {
	if len(mf.Inputs) == 0 {
		return errors.New("smoke run needs input specs in the manifest")
	}

	info, err := onnx.DetectRuntime(opts.Runtime)
	if err != nil {
		return fmt.Errorf("locate ONNX Runtime library: %w", err)
	}

	runner, err := onnx.NewRunner(mf.Name, mf.Path, onnx.RunnerConfig{
		LibraryPath:    info.LibraryPath,
		APIVersion:     opts.Runtime.ORTAPIVersion,
		IntraOpThreads: opts.Runtime.Threads,
	})
	if err != nil {
		return fmt.Errorf("load model: %w", err)
	}
	defer runner.Close()

	// The session only exposes input names, so the zero tensors come from
	// the manifest's pinned input specs.
	inputs := make(map[string]*onnx.Tensor, len(mf.Inputs))
	for _, in := range mf.Inputs {
		dtype, err := dtypeFromSpec(in.DType)
		if err != nil {
			return fmt.Errorf("input %q: %w", in.Name, err)
		}
		t, err := onnx.NewZeroTensor(dtype, in.Shape)
		if err != nil {
			return fmt.Errorf("build input %q tensor: %w", in.Name, err)
		}
		inputs[in.Name] = t
	}

	if _, err := runner.Run(context.Background(), inputs); err != nil {
		return fmt.Errorf("run inference: %w", err)
	}
	return nil
}

func dtypeFromSpec(s string) (onnx.TensorDType, error) {
	switch onnx.TensorDType(strings.ToLower(strings.TrimSpace(s))) {
	case onnx.DTypeFloat32:
		return onnx.DTypeFloat32, nil
	case onnx.DTypeInt64:
		return onnx.DTypeInt64, nil
	default:
		return "", fmt.Errorf("unsupported dtype %q", s)
	}
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash model file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
