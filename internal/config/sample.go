package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed sample_config.toml
var sampleConfig string

// CreateSample writes the commented sample configuration to path, creating
// its parent directory.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
