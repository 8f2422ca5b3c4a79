package config

import "time"

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Service identifies the biometric service and how its state is polled after
// a stop or start request.
type Service struct {
	Name           string `toml:"name"`
	PollIntervalMS int    `toml:"poll_interval_ms"`
	PollAttempts   int    `toml:"poll_attempts"`
}

// Storage describes where the biometric service keeps its databases.
type Storage struct {
	DatabaseDir       string `toml:"database_dir"`
	DatabaseExtension string `toml:"database_extension"`
	RegistryKey       string `toml:"registry_key"`
	BackupDir         string `toml:"backup_dir"`
}

// Enrollment bounds the interactive enrollment loop.
type Enrollment struct {
	MaxAttempts int `toml:"max_attempts"`
}

// History controls the local outcome journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Diagnostics configures the external tooling used by hardware checks.
type Diagnostics struct {
	PowerShell string `toml:"powershell"`
}

// Config encapsulates all configuration values for winfp.
type Config struct {
	Logging     Logging     `toml:"logging"`
	Service     Service     `toml:"service"`
	Storage     Storage     `toml:"storage"`
	Enrollment  Enrollment  `toml:"enrollment"`
	History     History     `toml:"history"`
	Diagnostics Diagnostics `toml:"diagnostics"`
}

// PollInterval returns the service state polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Service.PollIntervalMS) * time.Millisecond
}

// PowerShellBinary returns the PowerShell executable used for device queries.
func (c *Config) PowerShellBinary() string {
	return c.Diagnostics.PowerShell
}
