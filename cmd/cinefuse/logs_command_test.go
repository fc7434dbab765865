package main

import (
	"testing"

	"cinefuse/internal/logging"
)

func TestCLILogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	env.hub.Publish(logging.LogEvent{Level: "INFO", Message: "fetch complete", Component: "workflow"})
	env.hub.Publish(logging.LogEvent{Level: "WARN", Message: "provider slow", Component: "gateway"})

	out, _, err := runCLI(t, []string{"logs", "--lines", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "fetch complete")
	requireContains(t, out, "WARN [gateway] - provider slow")
}

func TestCLILogsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")
}
