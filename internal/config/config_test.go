package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDurationUnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "5s", 5 * time.Second, false},
		{"milliseconds", "150ms", 150 * time.Millisecond, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speakd.toml")
	if err := os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (explicit value should survive defaulting)", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, "console")
	}
	if cfg.Control.SocketPath == "" {
		t.Error("Control.SocketPath should default to a non-empty path")
	}
	if cfg.Control.StartupTimeout.Duration != 5*time.Second {
		t.Errorf("Control.StartupTimeout = %v, want 5s default", cfg.Control.StartupTimeout.Duration)
	}
	if cfg.Paths.ModelsDir == "" {
		t.Error("Paths.ModelsDir should default to a non-empty path under DataDir")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/speakd.toml"); err == nil {
		t.Error("Load() of a missing file should return an error")
	}
}

func TestDefaultSocketPathRespectsXDGRuntimeDir(t *testing.T) {
	old := os.Getenv("XDG_RUNTIME_DIR")
	defer os.Setenv("XDG_RUNTIME_DIR", old)

	os.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := defaultSocketPath(); got != "/run/user/1000/speakd.sock" {
		t.Errorf("defaultSocketPath() = %q, want under XDG_RUNTIME_DIR", got)
	}

	os.Unsetenv("XDG_RUNTIME_DIR")
	if got := defaultSocketPath(); filepath.Dir(got) != "/tmp" {
		t.Errorf("defaultSocketPath() fallback = %q, want under /tmp", got)
	}
}

func TestLoadFromEnvWithoutAnyConfigFile(t *testing.T) {
	old := os.Getenv("SPEAKD_CONFIG")
	defer os.Setenv("SPEAKD_CONFIG", old)
	os.Unsetenv("SPEAKD_CONFIG")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() with no config present should fall back to defaults, got error: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, "info")
	}
}
