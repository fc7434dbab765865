package scheduler_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"cinefuse/internal/catalog"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/queue"
	"cinefuse/internal/scheduler"
	"cinefuse/internal/testsupport"
)

type trendingStub struct {
	pages map[int][]film.ProviderRecord
	err   error
	calls []int
}

func (ts *trendingStub) Trending(_ context.Context, page int) ([]film.ProviderRecord, error) {
	ts.calls = append(ts.calls, page)
	if ts.err != nil {
		return nil, ts.err
	}
	return ts.pages[page], nil
}

func newService(t *testing.T, cfg *config.Config, trending scheduler.TrendingSource) (*scheduler.Service, *queue.Store, *catalog.Store) {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open queue store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	catalogStore, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog store: %v", err)
	}
	t.Cleanup(func() { catalogStore.Close() })

	return scheduler.New(cfg, store, catalogStore, trending, nil), store, catalogStore
}

func seedFilm(t *testing.T, store *catalog.Store, tmdbID int64, title string, aggregatedAt time.Time) {
	t.Helper()
	unified := &film.Unified{
		Title:        title,
		Year:         1995,
		TMDBID:       tmdbID,
		AggregatedAt: aggregatedAt,
	}
	if err := store.UpsertUnified(context.Background(), unified); err != nil {
		t.Fatalf("seed film %d: %v", tmdbID, err)
	}
}

func tmdbRecord(t *testing.T, nativeID, title string, year int) film.ProviderRecord {
	t.Helper()
	rec, err := film.NewProviderRecord(film.ProviderTMDB, nativeID, title, "", year, "")
	if err != nil {
		t.Fatalf("new provider record: %v", err)
	}
	return *rec
}

func TestStartRegistersConfiguredJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg, &trendingStub{})

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer svc.Stop()

	jobs := svc.Jobs()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d: %+v", len(jobs), jobs)
	}
	wantOrder := []string{scheduler.JobHealthLog, scheduler.JobRefreshStale, scheduler.JobTrendingImport}
	for i, want := range wantOrder {
		if jobs[i].Name != want {
			t.Fatalf("job %d = %q, want %q", i, jobs[i].Name, want)
		}
		if jobs[i].Spec == "" {
			t.Fatalf("job %q has empty spec", jobs[i].Name)
		}
		if jobs[i].NextRun.IsZero() {
			t.Fatalf("job %q has no next run", jobs[i].Name)
		}
	}

	svc.Stop()
	svc.Stop() // stopping twice is a no-op
}

func TestStartSkipsJobsWithEmptySpec(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.TrendingSpec = ""
	svc, _, _ := newService(t, cfg, nil)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer svc.Stop()

	jobs := svc.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %+v", len(jobs), jobs)
	}
	for _, job := range jobs {
		if job.Name == scheduler.JobTrendingImport {
			t.Fatalf("trending job registered despite empty spec")
		}
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.RefreshSpec = "every six hours"
	svc, _, _ := newService(t, cfg, &trendingStub{})

	err := svc.Start(context.Background())
	if err == nil {
		svc.Stop()
		t.Fatal("expected invalid spec error")
	}
	if !strings.Contains(err.Error(), scheduler.JobRefreshStale) {
		t.Fatalf("error does not name the job: %v", err)
	}
}

func TestStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg, &trendingStub{})

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer svc.Stop()

	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func TestRunRefreshQueuesStaleFilms(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, catalogStore := newService(t, cfg, nil)

	now := time.Now().UTC()
	seedFilm(t, catalogStore, 949, "Heat", now.Add(-240*time.Hour))
	seedFilm(t, catalogStore, 550, "Fight Club", now.Add(-time.Hour))

	queued, err := svc.RunRefresh(context.Background())
	if err != nil {
		t.Fatalf("run refresh: %v", err)
	}
	if queued != 1 {
		t.Fatalf("queued = %d, want 1", queued)
	}

	item, err := store.FindActiveByTMDBID(context.Background(), 949)
	if err != nil {
		t.Fatalf("find queued item: %v", err)
	}
	if item == nil {
		t.Fatal("stale film was not queued")
	}
	if fresh, _ := store.FindActiveByTMDBID(context.Background(), 550); fresh != nil {
		t.Fatalf("fresh film was queued: %+v", fresh)
	}
}

func TestRunRefreshHonorsBatchLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.RefreshBatchSize = 1
	svc, store, catalogStore := newService(t, cfg, nil)

	now := time.Now().UTC()
	seedFilm(t, catalogStore, 949, "Heat", now.Add(-400*time.Hour))
	seedFilm(t, catalogStore, 550, "Fight Club", now.Add(-300*time.Hour))

	queued, err := svc.RunRefresh(context.Background())
	if err != nil {
		t.Fatalf("run refresh: %v", err)
	}
	if queued != 1 {
		t.Fatalf("queued = %d, want 1", queued)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if stats[queue.StatusPending] != 1 {
		t.Fatalf("pending = %d, want 1", stats[queue.StatusPending])
	}
}

func TestRunRefreshDedupesActiveItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, catalogStore := newService(t, cfg, nil)

	seedFilm(t, catalogStore, 949, "Heat", time.Now().UTC().Add(-240*time.Hour))

	for run := 0; run < 2; run++ {
		if _, err := svc.RunRefresh(context.Background()); err != nil {
			t.Fatalf("run refresh %d: %v", run, err)
		}
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	if stats[queue.StatusPending] != 1 {
		t.Fatalf("pending = %d, want 1 after repeated refresh", stats[queue.StatusPending])
	}
}

func TestRunTrendingQueuesOnlyNewFilms(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &trendingStub{pages: map[int][]film.ProviderRecord{
		1: {
			tmdbRecord(t, "550", "Fight Club", 1999),
			tmdbRecord(t, "949", "Heat", 1995),
			tmdbRecord(t, "tt0113277", "Unparseable", 1995),
		},
	}}
	svc, store, catalogStore := newService(t, cfg, stub)

	seedFilm(t, catalogStore, 949, "Heat", time.Now().UTC())

	queued, skipped, err := svc.RunTrending(context.Background())
	if err != nil {
		t.Fatalf("run trending: %v", err)
	}
	if queued != 1 || skipped != 2 {
		t.Fatalf("queued = %d skipped = %d, want 1 and 2", queued, skipped)
	}

	item, err := store.FindActiveByTMDBID(context.Background(), 550)
	if err != nil {
		t.Fatalf("find queued item: %v", err)
	}
	if item == nil {
		t.Fatal("new trending film was not queued")
	}
	if cataloged, _ := store.FindActiveByTMDBID(context.Background(), 949); cataloged != nil {
		t.Fatalf("cataloged film was queued: %+v", cataloged)
	}
}

func TestRunTrendingWalksConfiguredPages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.TrendingPages = 2
	stub := &trendingStub{pages: map[int][]film.ProviderRecord{
		1: {tmdbRecord(t, "550", "Fight Club", 1999)},
		2: {tmdbRecord(t, "949", "Heat", 1995)},
	}}
	svc, _, _ := newService(t, cfg, stub)

	queued, skipped, err := svc.RunTrending(context.Background())
	if err != nil {
		t.Fatalf("run trending: %v", err)
	}
	if queued != 2 || skipped != 0 {
		t.Fatalf("queued = %d skipped = %d, want 2 and 0", queued, skipped)
	}
	if len(stub.calls) != 2 || stub.calls[0] != 1 || stub.calls[1] != 2 {
		t.Fatalf("pages fetched = %v, want [1 2]", stub.calls)
	}
}

func TestRunTrendingWithoutSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, _, _ := newService(t, cfg, nil)

	if _, _, err := svc.RunTrending(context.Background()); err == nil {
		t.Fatal("expected error without a trending source")
	}
}

func TestRunHealthLogSummarizesStores(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, store, catalogStore := newService(t, cfg, nil)

	seedFilm(t, catalogStore, 949, "Heat", time.Now().UTC())
	if _, err := store.NewFilm(context.Background(), 550, "", "Fight Club", 1999); err != nil {
		t.Fatalf("seed queue item: %v", err)
	}

	if err := svc.RunHealthLog(context.Background()); err != nil {
		t.Fatalf("run health log: %v", err)
	}
}
