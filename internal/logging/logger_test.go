package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cinefuse/internal/config"
)

func TestNewWritesJSONToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("collect complete", slog.String("provider", "omdb"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	output := string(data)
	if !strings.Contains(output, `"msg":"collect complete"`) {
		t.Errorf("expected msg field in output, got: %s", output)
	}
	if !strings.Contains(output, `"provider":"omdb"`) {
		t.Errorf("expected provider field in output, got: %s", output)
	}
	if !strings.Contains(output, `"ts":`) {
		t.Errorf("expected ts field in output, got: %s", output)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Options{
		Format:      "yaml",
		OutputPaths: []string{filepath.Join(dir, "out.log")},
	})
	if err == nil {
		t.Fatal("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "yaml") {
		t.Errorf("expected format name in error, got: %v", err)
	}
}

func TestNewAttachesHub(t *testing.T) {
	dir := t.TempDir()
	hub := NewStreamHub(16)

	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{filepath.Join(dir, "out.log")},
		ErrorOutputPaths: []string{filepath.Join(dir, "out.log")},
		Hub:              hub,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("fetch complete", slog.Int64(FieldItemID, 7), slog.String(FieldStage, "fetch"))

	events, _ := hub.Tail(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 hub event, got %d", len(events))
	}
	if events[0].ItemID != 7 {
		t.Errorf("expected item_id=7, got %d", events[0].ItemID)
	}
	if events[0].Stage != "fetch" {
		t.Errorf("expected stage=fetch, got %q", events[0].Stage)
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}

	logger.Info("daemon started")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "cinefuse.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "daemon started") {
		t.Errorf("expected message in log file, got: %s", string(data))
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"  WARN  ", slog.LevelWarn},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.input); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestPrettyHandlerInfoBullets(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("ratings collected",
		slog.String("component", "collect"),
		slog.Int64(FieldItemID, 12),
		slog.String(FieldStage, "Collecting"),
		slog.String(FieldProvider, "omdb"),
	)

	output := buf.String()
	if !strings.Contains(output, "INFO [collect]") {
		t.Errorf("expected component header, got: %s", output)
	}
	if !strings.Contains(output, "Item #12 (Collecting)") {
		t.Errorf("expected item subject, got: %s", output)
	}
	if !strings.Contains(output, "– ratings collected") {
		t.Errorf("expected message after dash, got: %s", output)
	}
	if !strings.Contains(output, "    - Provider: omdb") {
		t.Errorf("expected provider bullet, got: %s", output)
	}
}

func TestPrettyHandlerSuppressesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	attrs := []any{
		slog.Int64(FieldItemID, 3),
		slog.String("film_title", "Heat"),
	}
	logger.Info("first", attrs...)
	logger.Info("second", attrs...)

	output := buf.String()
	if got := strings.Count(output, "- Title: Heat"); got != 1 {
		t.Errorf("expected title bullet once, got %d in: %s", got, output)
	}
}

func TestFormatSubject(t *testing.T) {
	cases := []struct {
		lane, itemID, stage string
		want                string
	}{
		{"network", "4", "Fetching", "Network · Item #4 (Fetching)"},
		{"", "4", "", "Item #4"},
		{"finalize", "", "Publishing", "Finalize · Publishing"},
		{"", "", "", ""},
	}
	for _, tc := range cases {
		if got := FormatSubject(tc.lane, tc.itemID, tc.stage); got != tc.want {
			t.Errorf("FormatSubject(%q, %q, %q) = %q, want %q", tc.lane, tc.itemID, tc.stage, got, tc.want)
		}
	}
}
