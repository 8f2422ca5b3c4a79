package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"winfp/internal/history"
	"winfp/internal/winbio"
)

func TestHistoryListsRecordedRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "none recorded yet")

	env.gw.captures = []winbio.Status{winbio.StatusOK}
	if _, err := runCLI(t, env, "enroll", "--finger", "2"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := runCLI(t, env, "delete-database", "--db", "1"); err != nil {
		t.Fatalf("delete-database: %v", err)
	}

	out, err = runCLI(t, env, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "enrollment")
	requireContains(t, out, "maintenance")
	requireContains(t, out, "database 1: 1 file(s)")

	out, err = runCLI(t, env, "history", "--limit", "1", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].Kind != history.KindMaintenance {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	content, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	disabled := strings.Replace(string(content), "enabled = true", "enabled = false", 1)
	if err := os.WriteFile(env.configPath, []byte(disabled), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := runCLI(t, env, "history"); err == nil {
		t.Fatal("expected error with history disabled")
	}
	env.gw.captures = []winbio.Status{winbio.StatusOK}
	if _, err := runCLI(t, env, "enroll", "--finger", "2"); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if _, err := os.Stat(env.historyDB); !os.IsNotExist(err) {
		t.Fatalf("history database created while disabled: %v", err)
	}
}
