package api

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cinefuse/internal/catalog"
)

type mockCatalogReader struct {
	films    []*catalog.Film
	stats    catalog.Stats
	err      error
	lastYear int
}

func (m *mockCatalogReader) List(context.Context, int) ([]*catalog.Film, error) {
	return m.films, m.err
}

func (m *mockCatalogReader) Search(_ context.Context, _ string, year, _ int) ([]*catalog.Film, error) {
	m.lastYear = year
	return m.films, m.err
}

func (m *mockCatalogReader) FilmByTMDBID(_ context.Context, tmdbID int64) (*catalog.Film, error) {
	for _, f := range m.films {
		if f.TMDBID == tmdbID {
			return f, m.err
		}
	}
	return nil, m.err
}

func (m *mockCatalogReader) CatalogStats(context.Context) (catalog.Stats, error) {
	return m.stats, m.err
}

func TestFilmService_List(t *testing.T) {
	reader := &mockCatalogReader{films: []*catalog.Film{{
		TMDBID:    949,
		Title:     "Heat",
		Composite: decimal.NullDecimal{Decimal: decimal.NewFromFloat(8.6), Valid: true},
	}}}
	svc := NewFilmService(reader)
	films, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(films) != 1 {
		t.Fatalf("unexpected film count: %d", len(films))
	}
	if films[0].Composite != "8.60" {
		t.Fatalf("unexpected composite: %q", films[0].Composite)
	}
}

func TestFilmService_SearchPassesYear(t *testing.T) {
	reader := &mockCatalogReader{}
	svc := NewFilmService(reader)
	if _, err := svc.Search(context.Background(), "heat", 1995, 5); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if reader.lastYear != 1995 {
		t.Fatalf("year filter not forwarded: %d", reader.lastYear)
	}
}

func TestFilmService_DescribeAbsent(t *testing.T) {
	svc := NewFilmService(&mockCatalogReader{})
	f, err := svc.Describe(context.Background(), 949)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil film, got %+v", f)
	}
}

func TestFilmService_Stats(t *testing.T) {
	svc := NewFilmService(&mockCatalogReader{stats: catalog.Stats{Films: 4, Rated: 3, Ratings: 9}})
	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Films != 4 || stats.Rated != 3 || stats.Ratings != 9 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestFilmService_Error(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewFilmService(&mockCatalogReader{err: errSentinel})
	if _, err := svc.List(context.Background(), 0); !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}
