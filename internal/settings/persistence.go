package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// Path returns the settings file location, creating its parent directory
// if necessary.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(err, "resolve home directory").WithCode(errkind.CodeConfig)
	}

	dir := filepath.Join(home, ".config", "speakd")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrap(err, "create settings directory").WithCode(errkind.CodeConfig)
	}

	return filepath.Join(dir, "settings.json"), nil
}

// Load reads the persisted settings blob, if any, decoding it on top of
// Default() so that unknown keys are ignored and any key absent from the
// file keeps its factory default rather than zeroing out.
func Load() (Settings, error) {
	path, err := Path()
	if err != nil {
		return Settings{}, err
	}

	result := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return Settings{}, errs.Wrap(err, "read settings file").WithCode(errkind.CodeConfig)
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return Settings{}, errs.Wrap(err, "parse settings file").WithCode(errkind.CodeConfig)
	}

	return result, nil
}

// Save persists s as the operator's settings blob. It writes to a sibling
// temp file and renames it over path, so a daemon killed mid-save never
// leaves a truncated settings.json behind.
func Save(s Settings) error {
	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errs.Wrap(err, "marshal settings").WithCode(errkind.CodeConfig)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.json.tmp")
	if err != nil {
		return errs.Wrap(err, "create temp settings file").WithCode(errkind.CodeConfig)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Wrap(err, "write temp settings file").WithCode(errkind.CodeConfig)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "close temp settings file").WithCode(errkind.CodeConfig)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errs.Wrap(err, "replace settings file").WithCode(errkind.CodeConfig)
	}

	return nil
}
