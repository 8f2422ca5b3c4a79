package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"winfp/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WINFP_LOG_LEVEL", "WINFP_LOG_FORMAT", "WINFP_LOG_DIR", "WINFP_SERVICE_NAME",
		"WINFP_DATABASE_DIR", "WINFP_BACKUP_DIR", "WINFP_HISTORY_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "winfp", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Service.Name != "WbioSrvc" {
		t.Fatalf("unexpected service name: %q", cfg.Service.Name)
	}
	if cfg.PollInterval() != 500*time.Millisecond || cfg.Service.PollAttempts != 30 {
		t.Fatalf("unexpected poll settings: %v x %d", cfg.PollInterval(), cfg.Service.PollAttempts)
	}
	if cfg.Enrollment.MaxAttempts != 20 {
		t.Fatalf("unexpected max attempts: %d", cfg.Enrollment.MaxAttempts)
	}
	if cfg.Storage.DatabaseDir != `C:\Windows\System32\WinBioDatabase` {
		t.Fatalf("database dir must not be expanded: %q", cfg.Storage.DatabaseDir)
	}
	if cfg.Storage.DatabaseExtension != ".DAT" {
		t.Fatalf("unexpected extension: %q", cfg.Storage.DatabaseExtension)
	}
	wantHistory := filepath.Join(tempHome, ".local", "share", "winfp", "history.db")
	if cfg.History.Path != wantHistory {
		t.Fatalf("unexpected history path: got %q want %q", cfg.History.Path, wantHistory)
	}
	if cfg.Storage.BackupDir != "" {
		t.Fatalf("expected backups disabled by default, got %q", cfg.Storage.BackupDir)
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "winfp.toml")
	content := `
[logging]
format = " JSON "
level = "DEBUG"

[service]
name = " WbioSrvc "
poll_interval_ms = 250
poll_attempts = 4

[storage]
database_dir = 'D:\Bio\'
database_extension = "dat"
backup_dir = "~/bio-backups"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.Service.Name != "WbioSrvc" {
		t.Fatalf("service name not trimmed: %q", cfg.Service.Name)
	}
	if cfg.PollInterval() != 250*time.Millisecond || cfg.Service.PollAttempts != 4 {
		t.Fatalf("unexpected poll settings: %+v", cfg.Service)
	}
	if cfg.Storage.DatabaseDir != `D:\Bio` {
		t.Fatalf("unexpected database dir: %q", cfg.Storage.DatabaseDir)
	}
	if cfg.Storage.DatabaseExtension != ".dat" {
		t.Fatalf("unexpected extension: %q", cfg.Storage.DatabaseExtension)
	}
	if !strings.HasSuffix(cfg.Storage.BackupDir, "bio-backups") || strings.HasPrefix(cfg.Storage.BackupDir, "~") {
		t.Fatalf("backup dir not expanded: %q", cfg.Storage.BackupDir)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WINFP_LOG_LEVEL", "warn")
	t.Setenv("WINFP_SERVICE_NAME", "AltBio")
	backup := t.TempDir()
	t.Setenv("WINFP_BACKUP_DIR", backup)

	dir := t.TempDir()
	path := filepath.Join(dir, "winfp.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env level to win, got %q", cfg.Logging.Level)
	}
	if cfg.Service.Name != "AltBio" {
		t.Fatalf("expected env service name, got %q", cfg.Service.Name)
	}
	if cfg.Storage.BackupDir != backup {
		t.Fatalf("expected env backup dir %q, got %q", backup, cfg.Storage.BackupDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	cases := map[string]string{
		"format":        "[logging]\nformat = \"xml\"\n",
		"level":         "[logging]\nlevel = \"loud\"\n",
		"interval":      "[service]\npoll_interval_ms = 0\n",
		"attempts":      "[service]\npoll_attempts = -1\n",
		"enroll":        "[enrollment]\nmax_attempts = 0\n",
		"unknown field": "[service]\nretries = 3\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "winfp.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	def := config.Default()
	if parsed.Service != def.Service || parsed.Enrollment != def.Enrollment {
		t.Fatalf("sample drifted from defaults: %+v vs %+v", parsed, def)
	}
	if parsed.Storage.DatabaseDir != def.Storage.DatabaseDir || parsed.Storage.RegistryKey != def.Storage.RegistryKey {
		t.Fatalf("sample storage drifted from defaults: %+v", parsed.Storage)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || cfg.Service.Name != "WbioSrvc" {
		t.Fatalf("unexpected sample load: exists=%v cfg=%+v", exists, cfg.Service)
	}
}

func TestEnsureDirectoriesCreatesHistoryParent(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.History.Path = filepath.Join(base, "state", "history.db")
	cfg.Storage.BackupDir = filepath.Join(base, "backups")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{filepath.Join(base, "state"), cfg.Storage.BackupDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
