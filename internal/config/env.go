package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "WINFP"

// envOverrides lists the settings that may be supplied through WINFP_*
// variables. Empty values leave the file or default value in place.
type envOverrides struct {
	LogLevel    string `envconfig:"LOG_LEVEL"`
	LogFormat   string `envconfig:"LOG_FORMAT"`
	LogDir      string `envconfig:"LOG_DIR"`
	ServiceName string `envconfig:"SERVICE_NAME"`
	DatabaseDir string `envconfig:"DATABASE_DIR"`
	BackupDir   string `envconfig:"BACKUP_DIR"`
	HistoryPath string `envconfig:"HISTORY_PATH"`
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment overrides: %w", err)
	}
	override(&c.Logging.Level, env.LogLevel)
	override(&c.Logging.Format, env.LogFormat)
	override(&c.Logging.Dir, env.LogDir)
	override(&c.Service.Name, env.ServiceName)
	override(&c.Storage.DatabaseDir, env.DatabaseDir)
	override(&c.Storage.BackupDir, env.BackupDir)
	override(&c.History.Path, env.HistoryPath)
	return nil
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
