// Package models discovers locally available Whisper model files and
// remembers which one was last selected. It never downloads or fetches a
// model catalog; a model is available only if its file already exists on
// disk under the models directory.
package models

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/errs"
)

// Info describes one discovered model file.
type Info struct {
	ID   string // filename without extension, e.g. "ggml-base.en"
	Path string
	Size int64
}

// DisplayName renders a human-readable name from the model's raw file id,
// e.g. "ggml-base.en" -> "Base English".
func (i Info) DisplayName() string {
	return displayName(i.ID)
}

// IsEnglishOnly reports whether the model id names an English-only variant.
func (i Info) IsEnglishOnly() bool {
	return strings.Contains(i.ID, ".en")
}

var modelExtensions = []string{".bin", ".gguf"}

// Directory returns the directory models are discovered in:
// $XDG_DATA_HOME/speakd/models, falling back to ~/.local/share/speakd/models.
func Directory() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "speakd", "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(err, "resolve home directory").WithCode(errkind.CodeConfig)
	}
	return filepath.Join(home, ".local", "share", "speakd", "models"), nil
}

// selectionPath returns the file that records the last-selected model id.
func selectionPath() (string, error) {
	var dir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dir = filepath.Join(xdg, "speakd")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errs.Wrap(err, "resolve home directory").WithCode(errkind.CodeConfig)
		}
		dir = filepath.Join(home, ".config", "speakd")
	}
	return filepath.Join(dir, "selected_model"), nil
}

// Scan lists every model file found in Directory(), sorted by ascending
// file size, creating the directory if it does not yet exist.
func Scan() ([]Info, error) {
	dir, err := Directory()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "create models directory").WithCode(errkind.CodeConfig).WithDetail("dir", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Wrap(err, "read models directory").WithCode(errkind.CodeConfig).WithDetail("dir", dir)
	}

	var found []Info
	for _, entry := range entries {
		if entry.IsDir() || !hasModelExtension(entry.Name()) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		found = append(found, Info{
			ID:   id,
			Path: filepath.Join(dir, entry.Name()),
			Size: fi.Size(),
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Size < found[j].Size })
	return found, nil
}

func hasModelExtension(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range modelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Find returns the Info with the given id among available, or false if none
// matches.
func Find(available []Info, id string) (Info, bool) {
	for _, m := range available {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

// SaveSelection records id as the last-selected model.
func SaveSelection(id string) error {
	path, err := selectionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(err, "create config directory").WithCode(errkind.CodeConfig)
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return errs.Wrap(err, "write selected model").WithCode(errkind.CodeConfig)
	}
	return nil
}

// LoadSelection returns the last-selected model id, or "" if none was ever
// saved.
func LoadSelection() (string, error) {
	path, err := selectionPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errs.Wrap(err, "read selected model").WithCode(errkind.CodeConfig)
	}
	return strings.TrimSpace(string(data)), nil
}

// SelectedOrFirst returns the saved selection if it still exists among
// available, otherwise the first entry of available (the smallest model when
// available comes from Scan). It errors only when available is empty.
func SelectedOrFirst(available []Info) (Info, error) {
	if saved, err := LoadSelection(); err == nil && saved != "" {
		if m, ok := Find(available, saved); ok {
			return m, nil
		}
	}
	if len(available) == 0 {
		return Info{}, errs.New("no models found").WithCode(errkind.CodeModelLoadFailed)
	}
	return available[0], nil
}

func displayName(id string) string {
	name := id
	name = strings.ReplaceAll(name, "ggml-", "")
	name = strings.ReplaceAll(name, ".bin", "")
	name = strings.ReplaceAll(name, "-q5_0", " (Q5)")
	name = strings.ReplaceAll(name, "-q8_0", " (Q8)")
	name = strings.ReplaceAll(name, "-q5_1", " (Q5.1)")

	if strings.HasSuffix(name, ".en") {
		name = strings.TrimSuffix(name, ".en") + " English"
	}

	var b strings.Builder
	capNext := true
	for _, c := range name {
		switch {
		case c == '-':
			b.WriteByte(' ')
			capNext = true
		case capNext && c >= 'a' && c <= 'z':
			b.WriteRune(c - 32)
			capNext = false
		default:
			b.WriteRune(c)
			capNext = false
		}
	}
	return b.String()
}

// FormatSize renders a byte count as a short human-readable string, e.g.
// "142 MB".
func FormatSize(bytes int64) string {
	const mb = 1024 * 1024
	if bytes < mb {
		return strconv.FormatInt(bytes, 10) + " B"
	}
	return strconv.FormatInt(bytes/mb, 10) + " MB"
}
