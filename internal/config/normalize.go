package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeStorage()
	c.normalizeLogging()
	c.Diagnostics.PowerShell = strings.TrimSpace(c.Diagnostics.PowerShell)
	if c.Diagnostics.PowerShell == "" {
		c.Diagnostics.PowerShell = defaultPowerShell
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Storage.BackupDir, err = expandPath(strings.TrimSpace(c.Storage.BackupDir)); err != nil {
		return fmt.Errorf("storage.backup_dir: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.Name = strings.TrimSpace(c.Service.Name)
	if c.Service.Name == "" {
		c.Service.Name = defaultServiceName
	}
}

// The database directory and registry key are system locations. They are
// trimmed but never expanded against the working directory.
func (c *Config) normalizeStorage() {
	c.Storage.DatabaseDir = strings.TrimRight(strings.TrimSpace(c.Storage.DatabaseDir), `\/`)
	if c.Storage.DatabaseDir == "" {
		c.Storage.DatabaseDir = defaultDatabaseDir
	}
	ext := strings.TrimSpace(c.Storage.DatabaseExtension)
	if ext == "" {
		ext = defaultDatabaseExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Storage.DatabaseExtension = ext
	c.Storage.RegistryKey = strings.Trim(strings.TrimSpace(c.Storage.RegistryKey), `\`)
	if c.Storage.RegistryKey == "" {
		c.Storage.RegistryKey = defaultRegistryKey
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
