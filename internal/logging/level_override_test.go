package logging

import (
	"bytes"
	"strings"
	"testing"

	"log/slog"
)

func TestWithLevelOverrideFloorsRecords(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	floored := WithLevelOverride(base, slog.LevelInfo)
	floored.Debug("below the floor")
	floored.Info("at the floor")
	floored.Warn("above the floor")

	out := buf.String()
	if strings.Contains(out, "below the floor") {
		t.Error("debug record should have been dropped")
	}
	if !strings.Contains(out, "at the floor") {
		t.Error("info record should have passed through")
	}
	if !strings.Contains(out, "above the floor") {
		t.Error("warn record should have passed through")
	}
}

func TestWithLevelOverridePreservesAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	floored := WithLevelOverride(base.With(String("component", "ipc")), slog.LevelInfo)
	floored.Info("request")

	if !strings.Contains(buf.String(), "component=ipc") {
		t.Errorf("expected component attr in output, got %q", buf.String())
	}
}

func TestWithLevelOverrideReplacesExistingFloor(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	raised := WithLevelOverride(base, slog.LevelWarn)
	lowered := WithLevelOverride(raised, slog.LevelDebug)
	lowered.Debug("visible again")

	if !strings.Contains(buf.String(), "visible again") {
		t.Error("re-applying a lower floor should replace the old one, not stack")
	}

	if _, ok := lowered.Handler().(*levelFloorHandler); !ok {
		t.Fatalf("expected a single floor handler, got %T", lowered.Handler())
	}
}

func TestWithLevelOverrideNilLogger(t *testing.T) {
	logger := WithLevelOverride(nil, slog.LevelInfo)
	logger.Info("discarded") // must not panic
	if _, ok := logger.Handler().(NoopHandler); !ok {
		t.Fatalf("expected NoopHandler for nil logger, got %T", logger.Handler())
	}
}
