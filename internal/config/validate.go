package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if c.Enrollment.MaxAttempts < 1 {
		return errors.New("enrollment.max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateService() error {
	if c.Service.PollIntervalMS <= 0 {
		return errors.New("service.poll_interval_ms must be positive")
	}
	if c.Service.PollAttempts <= 0 {
		return errors.New("service.poll_attempts must be positive")
	}
	return nil
}
