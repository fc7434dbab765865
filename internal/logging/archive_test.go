package logging

import (
	"path/filepath"
	"testing"
)

func TestEventArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	archive, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive: %v", err)
	}
	defer archive.Close()

	hub := NewStreamHub(4)
	hub.AddSink(archive)
	hub.Publish(LogEvent{Message: "first", Stage: "fetch"})
	hub.Publish(LogEvent{Message: "second", Stage: "collect", Provider: "omdb"})
	hub.Publish(LogEvent{Message: "third"})

	events, highest, err := archive.ReadSince(1, 0)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after sequence 1, got %d", len(events))
	}
	if events[0].Message != "second" || events[0].Provider != "omdb" {
		t.Errorf("unexpected first replayed event: %+v", events[0])
	}
	if highest != 3 {
		t.Errorf("expected highest sequence 3, got %d", highest)
	}
}

func TestEventArchiveEmptyPathDisabled(t *testing.T) {
	archive, err := NewEventArchive("   ")
	if err != nil {
		t.Fatalf("NewEventArchive: %v", err)
	}
	if archive != nil {
		t.Fatal("expected nil archive for blank path")
	}

	// Nil receivers are safe no-ops.
	archive.Append(LogEvent{Message: "ignored"})
	events, _, err := archive.ReadSince(0, 0)
	if err != nil {
		t.Fatalf("ReadSince on nil archive: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
