package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// projectConfigName is picked up from the working directory when no user
// config exists.
const projectConfigName = "winfp.toml"

// Load locates, parses, and validates a configuration file. Values are applied
// in order: defaults, file, WINFP_* environment variables. The returned config
// has all local path fields expanded. The resolved path and whether a file
// was found there are returned alongside.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	for _, step := range []func() error{cfg.applyEnv, cfg.normalize, cfg.Validate} {
		if err := step(); err != nil {
			return nil, "", false, err
		}
	}
	return &cfg, resolved, exists, nil
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// locate resolves an explicit path as given. Without one it prefers the
// per-user file, then winfp.toml in the working directory, and otherwise
// reports the per-user path as missing.
func locate(explicit string) (string, bool, error) {
	if explicit != "" {
		path, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isConfigFile(path)
		return path, exists, err
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isConfigFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isConfigFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	case info.IsDir():
		return false, fmt.Errorf("config path %s is a directory", path)
	}
	return true, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}
