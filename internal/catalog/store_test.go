package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cinefuse/internal/catalog"
	"cinefuse/internal/film"
	"cinefuse/internal/testsupport"
)

func openStore(t *testing.T) *catalog.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close catalog store: %v", err)
		}
	})
	return store
}

func fixedDecimal(t *testing.T, value string) decimal.NullDecimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func sampleUnified(t *testing.T, tmdbID int64, title string, year int, aggregatedAt time.Time) *film.Unified {
	t.Helper()
	return &film.Unified{
		Title:        title,
		Year:         year,
		TMDBID:       tmdbID,
		IMDBID:       "tt0113277",
		KinopoiskID:  "535",
		Composite:    fixedDecimal(t, "8.60"),
		Weighted:     fixedDecimal(t, "8.45"),
		AggregatedAt: aggregatedAt,
		Ratings: []film.NormalizedRating{
			{RawRating: film.RawRating{Source: film.SourceTMDB, Value: 7.5, Max: 10, Votes: 1000}, Normalized: 7.5},
			{RawRating: film.RawRating{Source: film.SourceRottenTomatoes, Value: 89, Max: 100}, Normalized: 8.9},
			{RawRating: film.RawRating{Source: film.SourceMetascore, Value: 94, Max: 100}, Normalized: 9.4},
		},
	}
}

func TestUpsertUnifiedRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	aggregated := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	unified := sampleUnified(t, 949, "Heat", 1995, aggregated)
	unified.OriginalTitle = "Heat"

	if err := store.UpsertUnified(ctx, unified); err != nil {
		t.Fatalf("UpsertUnified failed: %v", err)
	}

	stored, err := store.FilmByTMDBID(ctx, 949)
	if err != nil {
		t.Fatalf("FilmByTMDBID failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected the film to be stored")
	}
	if stored.Title != "Heat" || stored.Year != 1995 || stored.IMDBID != "tt0113277" || stored.KinopoiskID != "535" {
		t.Fatalf("unexpected stored film: %#v", stored)
	}
	if !stored.AggregatedAt.Equal(aggregated) {
		t.Fatalf("expected aggregated_at %v, got %v", aggregated, stored.AggregatedAt)
	}
	if got := stored.Composite.Decimal.StringFixed(2); !stored.Composite.Valid || got != "8.60" {
		t.Fatalf("expected composite 8.60, got %s (valid=%v)", got, stored.Composite.Valid)
	}
	if got := stored.Weighted.Decimal.StringFixed(2); got != "8.45" {
		t.Fatalf("expected weighted 8.45, got %s", got)
	}
	if stored.RatingsCount != 3 || len(stored.Ratings) != 3 {
		t.Fatalf("expected three stored ratings, got count=%d len=%d", stored.RatingsCount, len(stored.Ratings))
	}
	for _, nr := range stored.Ratings {
		if nr.Source == film.SourceTMDB {
			if nr.Value != 7.5 || nr.Max != 10 || nr.Votes != 1000 || nr.Normalized != 7.5 {
				t.Fatalf("unexpected tmdb rating row: %#v", nr)
			}
		}
	}
}

func TestUpsertUnifiedReplacesRatings(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := sampleUnified(t, 949, "Heat", 1995, time.Now().UTC())
	if err := store.UpsertUnified(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := &film.Unified{
		Title:        "Heat",
		Year:         1995,
		TMDBID:       949,
		Composite:    fixedDecimal(t, "7.50"),
		AggregatedAt: time.Now().UTC(),
		Ratings: []film.NormalizedRating{
			{RawRating: film.RawRating{Source: film.SourceTMDB, Value: 7.5, Max: 10}, Normalized: 7.5},
		},
	}
	if err := store.UpsertUnified(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	stored, err := store.FilmByTMDBID(ctx, 949)
	if err != nil {
		t.Fatalf("FilmByTMDBID failed: %v", err)
	}
	if len(stored.Ratings) != 1 || stored.Ratings[0].Source != film.SourceTMDB {
		t.Fatalf("expected the rating set replaced, got %#v", stored.Ratings)
	}
	if got := stored.Composite.Decimal.StringFixed(2); got != "7.50" {
		t.Fatalf("expected composite 7.50 after replacement, got %s", got)
	}
	if stored.Weighted.Valid {
		t.Fatal("expected the weighted score cleared when the new result has none")
	}

	stats, err := store.CatalogStats(ctx)
	if err != nil {
		t.Fatalf("CatalogStats failed: %v", err)
	}
	if stats.Films != 1 || stats.Ratings != 1 {
		t.Fatalf("expected one film with one rating, got %+v", stats)
	}
}

func TestUpsertUnifiedRequiresTMDBID(t *testing.T) {
	store := openStore(t)

	if err := store.UpsertUnified(context.Background(), &film.Unified{Title: "Heat"}); err == nil {
		t.Fatal("expected error for a unified film without a tmdb id")
	}
	if err := store.UpsertUnified(context.Background(), nil); err == nil {
		t.Fatal("expected error for a nil unified film")
	}
}

func TestFilmByTMDBIDMissing(t *testing.T) {
	store := openStore(t)

	stored, err := store.FilmByTMDBID(context.Background(), 12345)
	if err != nil {
		t.Fatalf("FilmByTMDBID failed: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected nil for an unknown film, got %#v", stored)
	}
}

func TestListReturnsRecentFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"Heat", "Ronin", "Collateral"} {
		unified := sampleUnified(t, int64(100+i), title, 1995+i, base.Add(time.Duration(i)*time.Hour))
		if err := store.UpsertUnified(ctx, unified); err != nil {
			t.Fatalf("upsert %s failed: %v", title, err)
		}
	}

	films, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(films) != 2 {
		t.Fatalf("expected the limit to apply, got %d films", len(films))
	}
	if films[0].Title != "Collateral" || films[1].Title != "Ronin" {
		t.Fatalf("expected newest first, got %q then %q", films[0].Title, films[1].Title)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected every film without a limit, got %d", len(all))
	}
}

func TestSearchMatchesTitleAndYear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	heat := sampleUnified(t, 949, "Heat", 1995, now)
	if err := store.UpsertUnified(ctx, heat); err != nil {
		t.Fatalf("upsert heat failed: %v", err)
	}
	regional := sampleUnified(t, 535, "Схватка", 1995, now)
	regional.OriginalTitle = "Heat"
	if err := store.UpsertUnified(ctx, regional); err != nil {
		t.Fatalf("upsert regional failed: %v", err)
	}
	other := sampleUnified(t, 603, "The Matrix", 1999, now)
	if err := store.UpsertUnified(ctx, other); err != nil {
		t.Fatalf("upsert other failed: %v", err)
	}

	films, err := store.Search(ctx, "heat", 0, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(films) != 2 {
		t.Fatalf("expected title and original_title matches, got %d", len(films))
	}

	films, err = store.Search(ctx, "Heat", 1995, 0)
	if err != nil {
		t.Fatalf("Search with year failed: %v", err)
	}
	if len(films) != 2 {
		t.Fatalf("expected both 1995 films, got %d", len(films))
	}

	films, err = store.Search(ctx, "Heat", 1999, 0)
	if err != nil {
		t.Fatalf("Search with non-matching year failed: %v", err)
	}
	if len(films) != 0 {
		t.Fatalf("expected no matches for the wrong year, got %d", len(films))
	}

	if _, err := store.Search(ctx, "   ", 0, 0); err == nil {
		t.Fatal("expected error for a blank query")
	}
}

func TestStaleFilmsOrderedOldestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	oldest := sampleUnified(t, 1, "Oldest", 1990, cutoff.Add(-48*time.Hour))
	stale := sampleUnified(t, 2, "Stale", 1991, cutoff.Add(-24*time.Hour))
	fresh := sampleUnified(t, 3, "Fresh", 1992, cutoff.Add(time.Hour))
	for _, unified := range []*film.Unified{stale, fresh, oldest} {
		if err := store.UpsertUnified(ctx, unified); err != nil {
			t.Fatalf("upsert %s failed: %v", unified.Title, err)
		}
	}

	refs, err := store.StaleFilms(ctx, cutoff, 0)
	if err != nil {
		t.Fatalf("StaleFilms failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected two stale films, got %d", len(refs))
	}
	if refs[0].TMDBID != 1 || refs[1].TMDBID != 2 {
		t.Fatalf("expected oldest first, got %#v", refs)
	}
	if refs[0].Title != "Oldest" || refs[0].Year != 1990 {
		t.Fatalf("expected the reference fields filled, got %#v", refs[0])
	}

	limited, err := store.StaleFilms(ctx, cutoff, 1)
	if err != nil {
		t.Fatalf("StaleFilms with limit failed: %v", err)
	}
	if len(limited) != 1 || limited[0].TMDBID != 1 {
		t.Fatalf("expected only the oldest film, got %#v", limited)
	}
}

func TestRemoveCascadesRatings(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	unified := sampleUnified(t, 949, "Heat", 1995, time.Now().UTC())
	if err := store.UpsertUnified(ctx, unified); err != nil {
		t.Fatalf("UpsertUnified failed: %v", err)
	}

	removed, err := store.Remove(ctx, 949)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected the film to be removed")
	}

	stored, err := store.FilmByTMDBID(ctx, 949)
	if err != nil {
		t.Fatalf("FilmByTMDBID failed: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected the film gone, got %#v", stored)
	}

	stats, err := store.CatalogStats(ctx)
	if err != nil {
		t.Fatalf("CatalogStats failed: %v", err)
	}
	if stats.Films != 0 || stats.Ratings != 0 {
		t.Fatalf("expected the cascade to clear ratings, got %+v", stats)
	}

	removedAgain, err := store.Remove(ctx, 949)
	if err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if removedAgain {
		t.Fatal("expected removing an absent film to report false")
	}
}

func TestCatalogStats(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	oldest := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	if err := store.UpsertUnified(ctx, sampleUnified(t, 1, "First", 1990, oldest)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	unrated := &film.Unified{Title: "Unrated", TMDBID: 2, AggregatedAt: newest}
	if err := store.UpsertUnified(ctx, unrated); err != nil {
		t.Fatalf("upsert unrated failed: %v", err)
	}

	stats, err := store.CatalogStats(ctx)
	if err != nil {
		t.Fatalf("CatalogStats failed: %v", err)
	}
	if stats.Films != 2 || stats.Rated != 1 || stats.Ratings != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.OldestAggregatedAt.Equal(oldest) || !stats.NewestAggregatedAt.Equal(newest) {
		t.Fatalf("unexpected stats window: %+v", stats)
	}
}
