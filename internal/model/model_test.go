package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeModelFile(t *testing.T, dir, name string, content []byte) (string, string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(content)
	return path, hex.EncodeToString(sum[:])
}

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{
		"version": 1,
		"models": [{"name": "forest", "path": "models/forest.onnx"}]
	}`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	mf, err := m.SingleModel()
	if err != nil {
		t.Fatalf("SingleModel: %v", err)
	}
	want := filepath.Join(dir, "models", "forest.onnx")
	if mf.Path != want {
		t.Fatalf("Path = %q, want %q", mf.Path, want)
	}
}

func TestLoadManifestRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty models", `{"version": 1, "models": []}`},
		{"missing name", `{"models": [{"path": "m.onnx"}]}`},
		{"missing path", `{"models": [{"name": "forest"}]}`},
		{"duplicate name", `{"models": [{"name": "a", "path": "a.onnx"}, {"name": "a", "path": "b.onnx"}]}`},
		{"bad checksum", `{"models": [{"name": "a", "path": "a.onnx", "sha256": "xyz"}]}`},
		{"not json", `nope`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.body)
			if _, err := LoadManifest(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestManifestModelLookup(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{
		"models": [
			{"name": "a", "path": "a.onnx"},
			{"name": "b", "path": "b.onnx"}
		]
	}`)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Model("b"); err != nil {
		t.Errorf("Model(b): %v", err)
	}
	if _, err := m.Model("missing"); err == nil {
		t.Error("Model(missing): expected error")
	}
	if _, err := m.SingleModel(); err == nil {
		t.Error("SingleModel with two entries: expected error")
	}
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	path, sum := writeModelFile(t, dir, "forest.onnx", []byte("model bytes"))

	t.Run("matching checksum", func(t *testing.T) {
		if err := CheckFile(&ModelFile{Name: "forest", Path: path, SHA256: sum}); err != nil {
			t.Fatalf("CheckFile: %v", err)
		}
	})

	t.Run("no pinned checksum", func(t *testing.T) {
		if err := CheckFile(&ModelFile{Name: "forest", Path: path}); err != nil {
			t.Fatalf("CheckFile: %v", err)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		err := CheckFile(&ModelFile{Name: "forest", Path: path, SHA256: strings.Repeat("0", 64)})
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("err = %v, want ErrChecksumMismatch", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if err := CheckFile(&ModelFile{Name: "forest", Path: filepath.Join(dir, "gone.onnx")}); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestVerifyReportsPerModel(t *testing.T) {
	orig := runSmoke
	t.Cleanup(func() { runSmoke = orig })

	dir := t.TempDir()
	okPath, okSum := writeModelFile(t, dir, "ok.onnx", []byte("good"))
	badPath, _ := writeModelFile(t, dir, "bad.onnx", []byte("bad"))
	manifest := writeManifest(t, dir, fmt.Sprintf(`{
		"models": [
			{"name": "ok", "path": %q, "sha256": %q},
			{"name": "bad", "path": %q, "sha256": %q}
		]
	}`, okPath, okSum, badPath, strings.Repeat("a", 64)))

	runSmoke = func(mf *ModelFile, opts VerifyOptions) error { return nil }

	var stdout, stderr bytes.Buffer
	err := Verify(VerifyOptions{ManifestPath: manifest, Stdout: &stdout, Stderr: &stderr})
	if err == nil {
		t.Fatal("expected verify error")
	}
	if !strings.Contains(stdout.String(), "PASS ok") {
		t.Errorf("stdout missing PASS: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "FAIL bad") {
		t.Errorf("stderr missing FAIL: %q", stderr.String())
	}
}

func TestVerifyRejectsInvalidInputSpec(t *testing.T) {
	orig := runSmoke
	t.Cleanup(func() { runSmoke = orig })
	runSmoke = func(mf *ModelFile, opts VerifyOptions) error {
		t.Fatal("smoke run should not be reached")
		return nil
	}

	dir := t.TempDir()
	path, sum := writeModelFile(t, dir, "m.onnx", []byte("m"))
	manifest := writeManifest(t, dir, fmt.Sprintf(`{
		"models": [{
			"name": "m", "path": %q, "sha256": %q,
			"inputs": [{"name": "float_input", "dtype": "float64", "shape": [1, 4]}]
		}]
	}`, path, sum))

	if err := Verify(VerifyOptions{ManifestPath: manifest}); err == nil {
		t.Fatal("expected error for unsupported dtype")
	}
}

func TestVerifySmokeRunSucceeds(t *testing.T) {
	orig := runSmoke
	t.Cleanup(func() { runSmoke = orig })

	var smoked []string
	runSmoke = func(mf *ModelFile, opts VerifyOptions) error {
		smoked = append(smoked, mf.Name)
		return nil
	}

	dir := t.TempDir()
	path, sum := writeModelFile(t, dir, "m.onnx", []byte("m"))
	manifest := writeManifest(t, dir, fmt.Sprintf(`{
		"models": [{
			"name": "m", "path": %q, "sha256": %q,
			"inputs": [{"name": "float_input", "dtype": "float32", "shape": [-1, 4]}]
		}]
	}`, path, sum))

	if err := Verify(VerifyOptions{ManifestPath: manifest}); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(smoked) != 1 || smoked[0] != "m" {
		t.Fatalf("smoke runs = %v, want [m]", smoked)
	}
}

func TestSmokeRunNeedsInputSpecs(t *testing.T) {
	err := runSmokeImpl(&ModelFile{Name: "m", Path: "m.onnx"}, VerifyOptions{})
	if err == nil || !strings.Contains(err.Error(), "input specs") {
		t.Fatalf("expected input-spec error, got %v", err)
	}
}

func TestVerifyRequiresManifestPath(t *testing.T) {
	if err := Verify(VerifyOptions{}); err == nil {
		t.Fatal("expected error for empty manifest path")
	}
}
