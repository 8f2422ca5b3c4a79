package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "History: "+env.historyDB)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when the file exists")
	}
	if _, err := runCLI(t, env, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[logging]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCLI(t, env, "config", "validate"); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := runCLI(t, env, "identify"); err == nil {
		t.Fatal("expected commands to refuse an invalid config")
	}
}

func TestConfigInitSkipsBrokenConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("not toml ["), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, env, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init with broken config: %v", err)
	}
}
