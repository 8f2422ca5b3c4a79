package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ against the user's home directory and
// returns an absolute, cleaned path. Empty input stays empty.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok && (rest == "" || rest[0] == '/' || rest[0] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimLeft(rest, `/\`))
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// EnsureDirectories creates the local directories winfp writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Logging.Dir, c.Storage.BackupDir}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}
