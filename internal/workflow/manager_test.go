package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cinefuse/internal/config"
	"cinefuse/internal/logging"
	"cinefuse/internal/queue"
	"cinefuse/internal/services"
	"cinefuse/internal/stage"
	"cinefuse/internal/testsupport"
	"cinefuse/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Item)
	executeHook func(*queue.Item)
	prepareErr  error
	executeErr  error
	health      stage.Health

	mu       sync.Mutex
	executed int
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		s.prepareHook(item)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.executed++
	s.mu.Unlock()
	if s.executeHook != nil {
		s.executeHook(item)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubStage) executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed
}

type stubNotifier struct {
	mu             sync.Mutex
	queueStarts    []int
	queueCompletes []struct{ processed, failed int }
	reviews        []string
	errorLabels    []string
}

func (s *stubNotifier) NotifyFilmQueued(context.Context, string) error { return nil }

func (s *stubNotifier) NotifyAggregationCompleted(context.Context, string, string, int) error {
	return nil
}

func (s *stubNotifier) NotifyNeedsReview(_ context.Context, _ string, reason string) error {
	s.mu.Lock()
	s.reviews = append(s.reviews, reason)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyQueueStarted(_ context.Context, count int) error {
	s.mu.Lock()
	s.queueStarts = append(s.queueStarts, count)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyQueueCompleted(_ context.Context, processed, failed int, _ time.Duration) error {
	s.mu.Lock()
	s.queueCompletes = append(s.queueCompletes, struct{ processed, failed int }{processed, failed})
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyError(_ context.Context, _ error, contextLabel string) error {
	s.mu.Lock()
	s.errorLabels = append(s.errorLabels, contextLabel)
	s.mu.Unlock()
	return nil
}

func (s *stubNotifier) NotifyDaemonStarted(context.Context) error { return nil }
func (s *stubNotifier) NotifyDaemonStopped(context.Context) error { return nil }
func (s *stubNotifier) TestNotification(context.Context) error    { return nil }

func (s *stubNotifier) startCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queueStarts)
}

func (s *stubNotifier) completeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queueCompletes)
}

func workflowConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.ErrorRetryInterval = 0
	return cfg
}

func fullStageSet() (workflow.StageSet, map[string]*stubStage) {
	stages := map[string]*stubStage{
		"fetch":   newStubStage("fetch"),
		"resolve": newStubStage("resolve"),
		"collect": newStubStage("collect"),
		"score":   newStubStage("score"),
		"publish": newStubStage("publish"),
	}
	set := workflow.StageSet{
		Fetch:   stages["fetch"],
		Resolve: stages["resolve"],
		Collect: stages["collect"],
		Score:   stages["score"],
		Publish: stages["publish"],
	}
	return set, stages
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		updated, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated != nil && updated.Status == want {
			return updated
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesItemThroughAllStages(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	set, stages := fullStageSet()
	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item, err := store.NewFilm(ctx, 949, "tt0113277", "Heat", 1995)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}

	updated := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if updated.ErrorMessage != "" {
		t.Fatalf("expected clean completion, got error %q", updated.ErrorMessage)
	}
	if updated.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", updated.ProgressPercent)
	}

	for name, stg := range stages {
		if stg.executions() != 1 {
			t.Fatalf("expected stage %s to run once, ran %d times", name, stg.executions())
		}
	}

	if notifier.startCount() != 1 {
		t.Fatalf("expected one queue start notification, got %d", notifier.startCount())
	}
	deadline := time.After(10 * time.Second)
	for notifier.completeCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected queue completion notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	notifier.mu.Lock()
	completion := notifier.queueCompletes[0]
	notifier.mu.Unlock()
	if completion.processed != 1 || completion.failed != 0 {
		t.Fatalf("expected 1 processed / 0 failed, got %+v", completion)
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := newStubStage("fetch")
	handler.health = stage.Unhealthy(handler.name, "tmdb api key missing")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &stubNotifier{})
	mgr.ConfigureStages(workflow.StageSet{Fetch: handler})

	status := mgr.Status(context.Background())
	health, ok := status.StageHealth[handler.name]
	if !ok {
		t.Fatalf("expected stage health entry for %s", handler.name)
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "tmdb api key missing" {
		t.Fatalf("expected detail to round-trip, got %q", health.Detail)
	}
	if status.Running {
		t.Fatal("expected manager to report not running before Start")
	}
}

func TestManagerValidationFailureParksForReview(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	failing := newStubStage("fetch")
	failing.executeErr = services.Wrap(
		services.ErrValidation, "fetch", "resolve reference",
		"No provider recognized the film reference; check the title or supply a TMDB id", nil,
	)

	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Fetch: failing})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item, err := store.NewFilm(ctx, 0, "", "Unknown Film", 0)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}

	updated := waitForStatus(t, store, item.ID, queue.StatusReview)
	if !updated.NeedsReview {
		t.Fatal("expected needs_review to be set")
	}
	if updated.ReviewReason == "" {
		t.Fatal("expected review reason to be populated")
	}
	if updated.ProgressStage != "Review" {
		t.Fatalf("expected progress stage Review, got %q", updated.ProgressStage)
	}

	deadline := time.After(10 * time.Second)
	for {
		notifier.mu.Lock()
		reviews := len(notifier.reviews)
		notifier.mu.Unlock()
		if reviews > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected review notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestManagerServerFailureMarksFailed(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	failing := newStubStage("collect")
	failing.executeErr = services.Wrap(
		services.ErrServer, "collect", "omdb ratings",
		"OMDB returned a server error", errors.New("status 500"),
	)

	notifier := &stubNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Collect: failing})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item, err := store.NewFilm(ctx, 550, "", "Fight Club", 1999)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}

	updated := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if updated.ProgressStage != "Failed" {
		t.Fatalf("expected progress stage Failed, got %q", updated.ProgressStage)
	}
	if updated.ErrorMessage == "" {
		t.Fatal("expected error message to be populated")
	}
	if updated.NeedsReview {
		t.Fatal("server errors must not park items for review")
	}

	deadline := time.After(10 * time.Second)
	for {
		notifier.mu.Lock()
		errs := len(notifier.errorLabels)
		notifier.mu.Unlock()
		if errs > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected error notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestManagerStartRequiresConfiguredStages(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &stubNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail without configured stages")
	}
}

func TestManagerSkipsMissingMiddleStage(t *testing.T) {
	cfg := workflowConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fetch := newStubStage("fetch")
	collect := newStubStage("collect")
	score := newStubStage("score")
	publish := newStubStage("publish")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &stubNotifier{})
	mgr.ConfigureStages(workflow.StageSet{
		Fetch:   fetch,
		Collect: collect,
		Score:   score,
		Publish: publish,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item, err := store.NewFilm(ctx, 680, "", "Pulp Fiction", 1994)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}

	waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if fetch.executions() != 1 || collect.executions() != 1 || score.executions() != 1 || publish.executions() != 1 {
		t.Fatalf("expected each configured stage to run once, got fetch=%d collect=%d score=%d publish=%d",
			fetch.executions(), collect.executions(), score.executions(), publish.executions())
	}
}
