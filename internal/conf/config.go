package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default locations of the configuration files.
const (
	DefaultConfigPath = "/etc/stagehand/config.toml"
	DefaultDropInDir  = "/etc/stagehand/config.toml.d/"
	DefaultLegacyPath = "/etc/stagehand/stagehand.conf"
)

// ConfigSource orchestrates loading parameter values from files into a
// Store. See the Apply method.
type ConfigSource struct {
	Path       string
	DropInDir  string
	LegacyPath string
}

// NewConfigSource returns a ConfigSource for the default locations
// beneath confdir.
func NewConfigSource(confdir string) *ConfigSource {
	return &ConfigSource{
		Path:       filepath.Join(confdir, "config.toml"),
		DropInDir:  filepath.Join(confdir, "config.toml.d"),
		LegacyPath: filepath.Join(confdir, "stagehand.conf"),
	}
}

// Apply sets every value found in the configuration files on store.
// Layers are applied in this order, later ones overriding earlier ones:
// 1. Legacy INI file
// 2. Main configuration file
// 3. Drop-in files
//
// Missing files are skipped. A file that exists but cannot be parsed,
// that names a parameter store does not know, or that holds a value a
// reserved parameter rejects, is an error and none of its values are
// applied. A log destination that passes validation but cannot be opened
// is reported after the values sorted before it have been set.
func (cs *ConfigSource) Apply(store *Store) error {
	if cs.LegacyPath != "" {
		if err := applyLegacyFile(store, cs.LegacyPath); err != nil {
			return err
		}
	}

	// Load main configuration file
	if cs.Path != "" {
		data, err := os.ReadFile(cs.Path)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load %s: %w", cs.Path, err)
			}
		} else {
			values, err := parseConfig(string(data))
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", cs.Path, err)
			}
			if err := applyValues(store, cs.Path, values); err != nil {
				return err
			}
		}
	}

	// Load drop-in files
	paths, err := cs.findDropInFiles()
	if err != nil {
		slog.Error("failed to load drop-in files", "error", err, "dir", cs.DropInDir)
		return err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		values, err := parseConfig(string(data))
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := applyValues(store, path, values); err != nil {
			return err
		}
	}

	return nil
}

// parseConfig parses a TOML string into parameter values. Integers are
// returned as int.
func parseConfig(data string) (map[string]any, error) {
	values := make(map[string]any)
	if err := toml.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	for k, v := range values {
		if n, ok := v.(int64); ok {
			values[k] = int(n)
		}
	}
	return values, nil
}

// applyValues checks every key and value before setting any, so a file
// naming an unknown parameter or holding an invalid reserved value leaves
// store untouched.
func applyValues(store *Store, path string, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k, v := range values {
		if _, ok := v.(map[string]any); ok {
			return fmt.Errorf("%s: table %q is not supported", path, k)
		}
		if !store.Known(k) {
			return fmt.Errorf("%s: %w", path, UnknownParameterError{Name: Name(k)})
		}
		if err := store.Check(k, v); err != nil {
			return fmt.Errorf("%s: cannot set %s: %w", path, k, err)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := store.Set(k, values[k]); err != nil {
			return fmt.Errorf("%s: cannot set %s: %w", path, k, err)
		}
	}
	slog.Debug("applied configuration file", "path", path, "parameters", len(keys))
	return nil
}

// findDropInFiles finds and returns sorted paths to drop-in configuration files.
// Returns nil if the drop-in directory doesn't exist (not an error).
func (cs *ConfigSource) findDropInFiles() ([]string, error) {
	if cs.DropInDir == "" {
		return nil, nil
	}
	if _, err := os.Stat(cs.DropInDir); os.IsNotExist(err) {
		return nil, nil
	}

	entries, err := os.ReadDir(cs.DropInDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read drop-in directory %s: %w", cs.DropInDir, err)
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".toml") {
			filenames = append(filenames, filepath.Join(cs.DropInDir, entry.Name()))
		}
	}

	// Sort lexicographically
	sort.Strings(filenames)

	return filenames, nil
}
