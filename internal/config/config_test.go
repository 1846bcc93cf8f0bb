package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered at their defaults.
func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.ModelPath != "models/model.onnx" {
		t.Errorf("ModelPath = %q; want %q", cfg.Paths.ModelPath, "models/model.onnx")
	}

	if cfg.Paths.ManifestPath != "" {
		t.Errorf("ManifestPath = %q; want empty", cfg.Paths.ManifestPath)
	}

	if cfg.Runtime.Threads != 1 {
		t.Errorf("Runtime.Threads = %d; want 1", cfg.Runtime.Threads)
	}

	if cfg.Runtime.ORTAPIVersion != 23 {
		t.Errorf("Runtime.ORTAPIVersion = %d; want 23", cfg.Runtime.ORTAPIVersion)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}

	if cfg.Server.Workers != 2 {
		t.Errorf("Server.Workers = %d; want 2", cfg.Server.Workers)
	}

	if cfg.Server.RequestTimeout != 30 {
		t.Errorf("Server.RequestTimeout = %d; want 30", cfg.Server.RequestTimeout)
	}

	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("Server.ShutdownTimeout = %d; want 30", cfg.Server.ShutdownTimeout)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- Load precedence ---

func TestLoadDefaultsOnly(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Paths.ModelPath != defaults.Paths.ModelPath {
		t.Errorf("ModelPath = %q; want default %q", cfg.Paths.ModelPath, defaults.Paths.ModelPath)
	}

	if cfg.Runtime.Threads != defaults.Runtime.Threads {
		t.Errorf("Threads = %d; want default %d", cfg.Runtime.Threads, defaults.Runtime.Threads)
	}
}

func TestLoadFlagOverridesDefault(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	if err := binder.fs.Set("runtime-threads", "8"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := binder.fs.Set("paths-model-path", "other/model.onnx"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runtime.Threads != 8 {
		t.Errorf("Threads = %d; want 8", cfg.Runtime.Threads)
	}

	if cfg.Paths.ModelPath != "other/model.onnx" {
		t.Errorf("ModelPath = %q; want %q", cfg.Paths.ModelPath, "other/model.onnx")
	}
}

func TestLoadOrtLibAlias(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	if err := binder.fs.Set("ort-lib", "/opt/ort/libonnxruntime.so"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runtime.ORTLibraryPath != "/opt/ort/libonnxruntime.so" {
		t.Errorf("ORTLibraryPath = %q; want alias value", cfg.Runtime.ORTLibraryPath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	defaults := DefaultConfig()

	t.Setenv("TABPREDICT_ORT_LIB", "/env/libonnxruntime.so")

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runtime.ORTLibraryPath != "/env/libonnxruntime.so" {
		t.Errorf("ORTLibraryPath = %q; want env value", cfg.Runtime.ORTLibraryPath)
	}
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	t.Setenv("TABPREDICT_ORT_LIB", "/env/libonnxruntime.so")

	if err := binder.fs.Set("runtime-ort-library-path", "/flag/libonnxruntime.so"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runtime.ORTLibraryPath != "/flag/libonnxruntime.so" {
		t.Errorf("ORTLibraryPath = %q; want flag value over env", cfg.Runtime.ORTLibraryPath)
	}
}

func TestLoadConfigFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "tabpredict.yaml")
	content := "paths:\n  model_path: from-file.onnx\nruntime:\n  threads: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(defaults), ConfigFile: path, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Paths.ModelPath != "from-file.onnx" {
		t.Errorf("ModelPath = %q; want %q", cfg.Paths.ModelPath, "from-file.onnx")
	}

	if cfg.Runtime.Threads != 3 {
		t.Errorf("Threads = %d; want 3", cfg.Runtime.Threads)
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	defaults := DefaultConfig()

	_, err := Load(LoadOptions{
		Cmd:        newFlagBinder(defaults),
		ConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
		Defaults:   defaults,
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
