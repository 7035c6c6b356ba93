// Package config loads the daemon's ambient process configuration: log
// level/format, the control socket path, and the models/data directories.
// It is distinct from internal/settings, which holds the hot-reloadable
// transcription behavior the operator tunes at runtime.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// ProcessConfig holds the daemon's ambient, process-level configuration.
type ProcessConfig struct {
	Log     LogConfig     `toml:"log"`
	Control ControlConfig `toml:"control"`
	Paths   PathsConfig   `toml:"paths"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Async  bool   `toml:"async"`
}

// ControlConfig locates the Unix-domain control socket.
type ControlConfig struct {
	SocketPath     string   `toml:"socket_path"`
	StartupTimeout Duration `toml:"startup_timeout"`
}

// PathsConfig locates on-disk directories the daemon reads from or writes to.
type PathsConfig struct {
	DataDir   string `toml:"data_dir"`
	ModelsDir string `toml:"models_dir"`
}

// Duration wraps time.Duration so TOML can parse "5s"-style strings.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Load reads and parses a TOML config file at path, applying defaults for
// anything left unset.
func Load(path string) (*ProcessConfig, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	var cfg ProcessConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()
	return &cfg, nil
}

// LoadFromEnv loads configuration from SPEAKD_CONFIG, falling back to a
// handful of conventional locations, and finally to pure defaults if none
// of them exist.
func LoadFromEnv() (*ProcessConfig, error) {
	path := os.Getenv("SPEAKD_CONFIG")
	if path == "" {
		for _, candidate := range defaultConfigPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path == "" {
		cfg := &ProcessConfig{}
		cfg.applyDefaults()
		cfg.expandEnvVars()
		return cfg, nil
	}

	return Load(path)
}

func defaultConfigPaths() []string {
	home := os.Getenv("HOME")
	return []string{
		"./speakd.toml",
		"./configs/speakd.toml",
		filepath.Join(home, ".config/speakd/speakd.toml"),
	}
}

func (c *ProcessConfig) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}

	if c.Control.SocketPath == "" {
		c.Control.SocketPath = defaultSocketPath()
	}
	if c.Control.StartupTimeout.Duration == 0 {
		c.Control.StartupTimeout.Duration = 5 * time.Second
	}

	if c.Paths.DataDir == "" {
		c.Paths.DataDir = filepath.Join(os.Getenv("HOME"), ".local/share/speakd")
	}
	if c.Paths.ModelsDir == "" {
		c.Paths.ModelsDir = filepath.Join(c.Paths.DataDir, "models")
	}
}

// defaultSocketPath mirrors the original daemon's fallback: prefer
// $XDG_RUNTIME_DIR, fall back to a per-uid path under /tmp when it's unset.
func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "speakd.sock")
	}
	return fmt.Sprintf("/tmp/speakd-%d.sock", os.Getuid())
}

func (c *ProcessConfig) expandEnvVars() {
	c.Paths.DataDir = os.ExpandEnv(c.Paths.DataDir)
	c.Paths.ModelsDir = os.ExpandEnv(c.Paths.ModelsDir)
	c.Control.SocketPath = os.ExpandEnv(c.Control.SocketPath)
}
