// Package model describes predictor bundles: the ONNX file on disk plus a
// small JSON manifest pinning its checksum and declared input signature.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manifest pins a model file and its expected signature.
type Manifest struct {
	Version int         `json:"version"`
	Models  []ModelFile `json:"models"`
}

// ModelFile is one pinned ONNX model. Path is relative to the manifest
// file unless absolute. SHA256 is optional; when empty the checksum
// check is skipped.
type ModelFile struct {
	Name   string      `json:"name"`
	Path   string      `json:"path"`
	SHA256 string      `json:"sha256,omitempty"`
	Inputs []InputSpec `json:"inputs,omitempty"`
}

// InputSpec declares an expected model input. Shape entries below 1 are
// symbolic dimensions.
type InputSpec struct {
	Name  string  `json:"name"`
	DType string  `json:"dtype"`
	Shape []int64 `json:"shape"`
}

// LoadManifest reads and validates a manifest, resolving relative model
// paths against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if len(m.Models) == 0 {
		return nil, fmt.Errorf("manifest %s declares no models", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]struct{}, len(m.Models))
	for i := range m.Models {
		mf := &m.Models[i]
		if mf.Name == "" {
			return nil, fmt.Errorf("manifest %s: model %d has no name", path, i)
		}
		if _, dup := seen[mf.Name]; dup {
			return nil, fmt.Errorf("manifest %s: duplicate model name %q", path, mf.Name)
		}
		seen[mf.Name] = struct{}{}

		if mf.Path == "" {
			return nil, fmt.Errorf("manifest %s: model %q has no path", path, mf.Name)
		}
		if !filepath.IsAbs(mf.Path) {
			mf.Path = filepath.Join(base, mf.Path)
		}

		sum := strings.ToLower(strings.TrimSpace(mf.SHA256))
		if sum != "" && !isSHA256Hex(sum) {
			return nil, fmt.Errorf("manifest %s: model %q has invalid sha256 %q", path, mf.Name, mf.SHA256)
		}
		mf.SHA256 = sum
	}

	return &m, nil
}

// Model returns the named model entry.
func (m *Manifest) Model(name string) (*ModelFile, error) {
	for i := range m.Models {
		if m.Models[i].Name == name {
			return &m.Models[i], nil
		}
	}
	return nil, fmt.Errorf("manifest has no model %q", name)
}

// SingleModel returns the sole model entry, or an error when the manifest
// declares more than one.
func (m *Manifest) SingleModel() (*ModelFile, error) {
	if len(m.Models) != 1 {
		return nil, fmt.Errorf("manifest declares %d models, expected exactly one (name the model explicitly)", len(m.Models))
	}
	return &m.Models[0], nil
}

func isSHA256Hex(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}

// ErrChecksumMismatch reports a model file whose contents do not match the
// manifest's pinned checksum.
var ErrChecksumMismatch = errors.New("model checksum mismatch")
