package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"cinefuse/internal/queue"
	"cinefuse/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFilm(ctx, 603, "tt0133093", "The Matrix", 1999)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "The Matrix" || fetched.TMDBID != 603 {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}

	found, err := store.FindActiveByTMDBID(ctx, 603)
	if err != nil {
		t.Fatalf("FindActiveByTMDBID failed: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("expected to find inserted item, got %#v", found)
	}
}

func TestNewFilmRequiresReference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewFilm(ctx, 0, "", "", 0); err == nil {
		t.Fatal("expected error when every identifier is missing")
	}
}

func TestNewFilmDeduplicatesActiveTMDBID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.NewFilm(ctx, 550, "", "Fight Club", 1999)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	second, err := store.NewFilm(ctx, 550, "", "Fight Club", 1999)
	if err != nil {
		t.Fatalf("NewFilm duplicate failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected duplicate add to return existing item %d, got %d", first.ID, second.ID)
	}

	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	third, err := store.NewFilm(ctx, 550, "", "Fight Club", 1999)
	if err != nil {
		t.Fatalf("NewFilm after completion failed: %v", err)
	}
	if third.ID == first.ID {
		t.Fatal("expected a fresh item once the earlier one completed")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"fetching", queue.StatusFetching, queue.StatusPending},
		{"resolving", queue.StatusResolving, queue.StatusFetched},
		{"collecting", queue.StatusCollecting, queue.StatusResolved},
		{"scoring", queue.StatusScoring, queue.StatusCollected},
		{"publishing", queue.StatusPublishing, queue.StatusScored},
	}
	var ids []int64
	for i, tc := range cases {
		item, err := store.NewFilm(ctx, int64(1000+i), "", fmt.Sprintf("Film-%s", tc.name), 2000+i)
		if err != nil {
			t.Fatalf("NewFilm failed: %v", err)
		}
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestItemsByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewFilm(ctx, 601, "", "Film A", 1980); err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	b, err := store.NewFilm(ctx, 602, "", "Film B", 1981)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	b.Status = queue.StatusFetched
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.ItemsByStatus(ctx, queue.StatusFetched)
	if err != nil {
		t.Fatalf("ItemsByStatus failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one fetched item, got %d", len(items))
	}
	if items[0].Title != "Film B" {
		t.Fatalf("expected Film B, got %s", items[0].Title)
	}
}

func TestListSupportsStatusFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, err := store.NewFilm(ctx, 701, "", "Film A", 1990)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	b, err := store.NewFilm(ctx, 702, "", "Film B", 1991)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	b.Status = queue.StatusFetched
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c, err := store.NewFilm(ctx, 703, "", "Film C", 1992)
	if err != nil {
		t.Fatalf("NewFilm failed: %v", err)
	}
	c.Status = queue.StatusFailed
	c.ErrorMessage = "boom"
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("expected order A,B,C, got IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusFetched, queue.StatusFailed)
	if err != nil {
		t.Fatalf("Filtered list failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 items, got %d", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("unexpected filtered order: got %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, err := store.NewFilm(ctx, 801, "", "ItemA", 1990)
	if err != nil {
		t.Fatalf("NewFilm: %v", err)
	}
	b, err := store.NewFilm(ctx, 802, "", "ItemB", 1991)
	if err != nil {
		t.Fatalf("NewFilm: %v", err)
	}
	for _, item := range []*queue.Item{a, b} {
		item.Status = queue.StatusFailed
		item.ErrorMessage = "boom"
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 items retried, got %d", updated)
	}

	item, err := store.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected item A pending, got %s", item.Status)
	}

	// Mark B failed again and retry targeted selection.
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	updated, err = store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("RetryFailed targeted: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 item retried, got %d", updated)
	}
}

func TestUpdateHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFilm(ctx, 901, "", "Heartbeat", 2001)
	if err != nil {
		t.Fatalf("NewFilm: %v", err)
	}
	item.Status = queue.StatusFetching
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected last heartbeat to be set")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	t.Run("all statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()
		cases := []struct {
			name       string
			processing queue.Status
			expected   queue.Status
		}{
			{"fetching", queue.StatusFetching, queue.StatusPending},
			{"resolving", queue.StatusResolving, queue.StatusFetched},
			{"collecting", queue.StatusCollecting, queue.StatusResolved},
			{"scoring", queue.StatusScoring, queue.StatusCollected},
			{"publishing", queue.StatusPublishing, queue.StatusScored},
		}
		var ids []int64
		for i, tc := range cases {
			item, err := store.NewFilm(ctx, int64(2000+i), "", fmt.Sprintf("Stale-%s", tc.name), 2010+i)
			if err != nil {
				t.Fatalf("NewFilm: %v", err)
			}
			item.Status = tc.processing
			item.LastHeartbeat = &past
			if err := store.Update(ctx, item); err != nil {
				t.Fatalf("Update: %v", err)
			}
			ids = append(ids, item.ID)
		}

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing: %v", err)
		}
		if int(count) != len(cases) {
			t.Fatalf("expected %d items reclaimed, got %d", len(cases), count)
		}

		for idx, tc := range cases {
			updated, err := store.GetByID(ctx, ids[idx])
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if updated.Status != tc.expected {
				t.Fatalf("%s: expected status %s after reclaim, got %s", tc.name, tc.expected, updated.Status)
			}
			if updated.LastHeartbeat != nil {
				t.Fatalf("%s: expected heartbeat cleared, got %v", tc.name, updated.LastHeartbeat)
			}
		}
	})

	t.Run("filtered statuses", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		store := testsupport.MustOpenStore(t, cfg)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()

		fetching, err := store.NewFilm(ctx, 2101, "", "Stale-Fetching", 2011)
		if err != nil {
			t.Fatalf("NewFilm fetching: %v", err)
		}
		fetching.Status = queue.StatusFetching
		fetching.LastHeartbeat = &past
		if err := store.Update(ctx, fetching); err != nil {
			t.Fatalf("Update fetching: %v", err)
		}

		scoring, err := store.NewFilm(ctx, 2102, "", "Stale-Scoring", 2012)
		if err != nil {
			t.Fatalf("NewFilm scoring: %v", err)
		}
		scoring.Status = queue.StatusScoring
		scoring.LastHeartbeat = &past
		if err := store.Update(ctx, scoring); err != nil {
			t.Fatalf("Update scoring: %v", err)
		}

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), queue.StatusScoring)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing filtered: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 item reclaimed, got %d", count)
		}

		reclaimed, err := store.GetByID(ctx, scoring.ID)
		if err != nil {
			t.Fatalf("GetByID scoring: %v", err)
		}
		if reclaimed.Status != queue.StatusCollected {
			t.Fatalf("expected scoring item rolled back to collected, got %s", reclaimed.Status)
		}
		if reclaimed.LastHeartbeat != nil {
			t.Fatalf("expected scoring heartbeat cleared, got %v", reclaimed.LastHeartbeat)
		}

		unchanged, err := store.GetByID(ctx, fetching.ID)
		if err != nil {
			t.Fatalf("GetByID fetching: %v", err)
		}
		if unchanged.Status != queue.StatusFetching {
			t.Fatalf("expected fetching item untouched, got %s", unchanged.Status)
		}
		if unchanged.LastHeartbeat == nil || !unchanged.LastHeartbeat.Equal(past) {
			t.Fatalf("expected fetching heartbeat unchanged, got %v", unchanged.LastHeartbeat)
		}
	})
}

func TestUpdateProgressPreservesHeartbeat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewFilm(ctx, 2201, "", "Heartbeat Progress", 2013)
	if err != nil {
		t.Fatalf("NewFilm: %v", err)
	}
	item.Status = queue.StatusFetching
	past := time.Now().Add(-5 * time.Minute).UTC()
	item.LastHeartbeat = &past
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID before progress: %v", err)
	}
	if before.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set before progress update")
	}
	origHeartbeat := *before.LastHeartbeat

	before.ProgressStage = "Fetching metadata"
	before.ProgressPercent = 42.5
	before.ProgressMessage = "Querying TMDB"
	if err := store.UpdateProgress(ctx, before); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID after progress: %v", err)
	}
	if after.LastHeartbeat == nil {
		t.Fatal("expected heartbeat preserved after progress update")
	}
	if !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("expected heartbeat unchanged, before %v after %v", origHeartbeat, after.LastHeartbeat)
	}
	if after.ProgressStage != "Fetching metadata" || after.ProgressMessage != "Querying TMDB" {
		t.Fatalf("expected progress fields persisted, got stage=%q message=%q", after.ProgressStage, after.ProgressMessage)
	}
	if after.ProgressPercent != 42.5 {
		t.Fatalf("expected progress percent 42.5, got %f", after.ProgressPercent)
	}
}
