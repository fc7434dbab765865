package workflow_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"cinefuse/internal/queue"
	"cinefuse/internal/testsupport"
	"cinefuse/internal/workflow"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLogCount(t *testing.T, out *syncBuffer, needle string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Count(out.String(), needle) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d log lines containing %q, got %d\nlog output:\n%s",
		want, needle, strings.Count(out.String(), needle), out.String())
}

func TestHeartbeatLoopSamplesProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFilm(ctx, 603, "tt0133093", "The Matrix", 1999)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	item.Status = queue.StatusFetching
	item.SetProgress("Fetching metadata", "Looking up primary record", 0)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(out, nil))
	monitor := workflow.NewHeartbeatMonitor(store, logger, 5*time.Millisecond, time.Minute)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	wg.Add(1)
	go monitor.StartLoop(loopCtx, &wg, item.ID)

	waitForLogCount(t, out, "stage progress", 1)

	// Ticks keep firing but the stored progress has not moved.
	time.Sleep(50 * time.Millisecond)
	if got := strings.Count(out.String(), "stage progress"); got != 1 {
		t.Fatalf("expected 1 progress line while progress is unchanged, got %d", got)
	}

	item.SetProgress("Collecting ratings", "Gathering ratings from resolved providers", 0)
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	waitForLogCount(t, out, "Collecting ratings", 1)

	cancel()
	wg.Wait()
}

func TestHeartbeatLoopDisabledWithoutInterval(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	monitor := workflow.NewHeartbeatMonitor(store, nil, 0, time.Minute)

	var wg sync.WaitGroup
	wg.Add(1)
	done := make(chan struct{})
	go func() {
		monitor.StartLoop(context.Background(), &wg, 1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop should return immediately when the interval is zero")
	}
	wg.Wait()
}
