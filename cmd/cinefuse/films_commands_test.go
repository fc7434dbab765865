package main

import (
	"strings"
	"testing"
)

func TestCLIFilmsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"films", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("films list: %v", err)
	}
	requireContains(t, out, "No films in catalog")
}

func TestCLIFilmsShowMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"films", "show", "603"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not in catalog") {
		t.Fatalf("expected missing-film error, got %v", err)
	}
}

func TestCLIFilmsRefreshMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"films", "refresh", "603"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error refreshing film that is not cataloged")
	}
}

func TestCLIFilmsListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"films", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("films list --json: %v", err)
	}
	requireContains(t, out, "\"films\"")
}
