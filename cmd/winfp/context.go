package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"winfp/internal/config"
	"winfp/internal/elevation"
	"winfp/internal/enroll"
	"winfp/internal/focus"
	"winfp/internal/hardware"
	"winfp/internal/history"
	"winfp/internal/logging"
	"winfp/internal/maintenance"
	"winfp/internal/preflight"
	"winfp/internal/registry"
	"winfp/internal/session"
	"winfp/internal/svcctl"
	"winfp/internal/winbio"
)

type deviceInspector interface {
	preflight.DeviceLister
	preflight.EventSource
}

// platform binds commands to the operating system. Tests replace every field.
type platform struct {
	gateway   func() (winbio.Gateway, error)
	focusHost func() focus.Host
	services  func() svcctl.Opener
	registry  func() registry.Reader
	files     func() maintenance.Files
	elevated  func() bool
	inspector func(powershell string) deviceInspector
	newLogger func(cfg *config.Config) (*slog.Logger, error)
	// sleep is used between service state polls; nil waits for real.
	sleep func(ctx context.Context, d time.Duration) error
}

func systemPlatform() platform {
	return platform{
		gateway:   winbio.NewSystemGateway,
		focusHost: focus.NewSystemHost,
		services:  svcctl.NewSystemOpener,
		registry:  registry.NewSystemReader,
		files:     maintenance.OSFiles,
		elevated:  elevation.IsElevated,
		inspector: func(powershell string) deviceInspector { return hardware.NewInspector(powershell) },
		newLogger: logging.NewFromConfig,
	}
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	platform     platform

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	gatewayOnce sync.Once
	gw          winbio.Gateway
	gatewayErr  error
}

func newCommandContext(configFlag, logLevelFlag *string, p platform) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		platform:     p,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// loggerValue never fails: a logger that cannot be built falls back to a
// console logger on stderr.
func (c *commandContext) loggerValue() *slog.Logger {
	c.loggerOnce.Do(func() {
		newLogger := c.platform.newLogger
		if newLogger == nil {
			newLogger = logging.NewFromConfig
		}
		logger, err := newLogger(c.configValue())
		if err != nil {
			logger, _ = logging.NewFromConfig(nil)
			logger.Warn("configured logger unavailable; using stderr", logging.Error(err))
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) gateway() (winbio.Gateway, error) {
	c.gatewayOnce.Do(func() {
		c.gw, c.gatewayErr = c.platform.gateway()
	})
	return c.gw, c.gatewayErr
}

// openSession opens a guarded session. Interactive sessions request focus.
func (c *commandContext) openSession(flags winbio.SessionFlags, wantFocus bool) (*session.Guard, winbio.Gateway, error) {
	gw, err := c.gateway()
	if err != nil {
		return nil, nil, err
	}
	var host focus.Host
	if wantFocus && c.platform.focusHost != nil {
		host = c.platform.focusHost()
	}
	guard, err := session.Open(gw, session.Options{
		Flags:     flags,
		WantFocus: wantFocus,
		Host:      host,
		Logger:    c.loggerValue(),
	})
	if err != nil {
		return nil, nil, err
	}
	return guard, gw, nil
}

func (c *commandContext) registryStore() *registry.Store {
	return registry.NewStore(c.platform.registry(), c.configValue().Storage.RegistryKey)
}

func (c *commandContext) poller() svcctl.Poller {
	cfg := c.configValue()
	return svcctl.Poller{
		Interval: cfg.PollInterval(),
		Attempts: cfg.Service.PollAttempts,
		Sleep:    c.platform.sleep,
	}
}

func (c *commandContext) isElevated() bool {
	if c.platform.elevated == nil {
		return false
	}
	return c.platform.elevated()
}

func (c *commandContext) warnIfNotElevated(p *printer) {
	if !c.isElevated() {
		p.warn("Not running as Administrator; some operations may fail")
	}
}

// withHistory runs fn against the journal when it is enabled. Journal
// failures are logged and never fail the command.
func (c *commandContext) withHistory(ctx context.Context, fn func(*history.Store) (history.Entry, error)) {
	cfg := c.configValue()
	if cfg == nil || !cfg.History.Enabled {
		return
	}
	logger := logging.NewComponentLogger(c.loggerValue(), "history")
	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		logging.WarnWithContext(logger, "history journal unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, cfg.History.Path),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return
	}
	defer store.Close()
	entry, err := fn(store)
	if err != nil {
		logging.WarnWithContext(logger, "history entry not written", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded"),
		)
		return
	}
	logger.Debug("history entry written", logging.String("run_id", entry.RunID))
}

func (c *commandContext) recordEnrollment(ctx context.Context, res enroll.Result, runErr error) {
	c.withHistory(ctx, func(s *history.Store) (history.Entry, error) {
		return s.RecordEnrollment(ctx, res, runErr)
	})
}

func (c *commandContext) recordMaintenance(ctx context.Context, req maintenance.Request, report maintenance.Report, runErr error) {
	c.withHistory(ctx, func(s *history.Store) (history.Entry, error) {
		return s.RecordMaintenance(ctx, req, report, runErr)
	})
}

// skipConfigLoad marks commands that must run even when the config file is
// missing or broken.
var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseFingerFlag(n int) (winbio.FingerPosition, error) {
	finger, err := winbio.ParseFinger(n)
	if err != nil {
		return 0, fmt.Errorf("--finger: %w", err)
	}
	return finger, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
