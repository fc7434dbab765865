package api

import (
	"context"

	"cinefuse/internal/catalog"
)

// CatalogReader abstracts catalog persistence interactions needed for API queries.
type CatalogReader interface {
	List(ctx context.Context, limit int) ([]*catalog.Film, error)
	Search(ctx context.Context, query string, year, limit int) ([]*catalog.Film, error)
	FilmByTMDBID(ctx context.Context, tmdbID int64) (*catalog.Film, error)
	CatalogStats(ctx context.Context) (catalog.Stats, error)
}

// FilmService exposes read-only catalog operations returning API DTOs.
type FilmService struct {
	store CatalogReader
}

// NewFilmService constructs a FilmService around the provided reader.
func NewFilmService(store CatalogReader) *FilmService {
	if store == nil {
		return nil
	}
	return &FilmService{store: store}
}

// List returns the most recently aggregated films.
func (s *FilmService) List(ctx context.Context, limit int) ([]Film, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	films, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return FromFilms(films), nil
}

// Search returns films matching a title query and optional year.
func (s *FilmService) Search(ctx context.Context, query string, year, limit int) ([]Film, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	films, err := s.store.Search(ctx, query, year, limit)
	if err != nil {
		return nil, err
	}
	return FromFilms(films), nil
}

// Describe fetches a single film by TMDB id, or nil when absent.
func (s *FilmService) Describe(ctx context.Context, tmdbID int64) (*Film, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	f, err := s.store.FilmByTMDBID(ctx, tmdbID)
	if err != nil || f == nil {
		return nil, err
	}
	dto := FromFilm(f)
	return &dto, nil
}

// Stats returns catalog summary totals.
func (s *FilmService) Stats(ctx context.Context) (CatalogStats, error) {
	if s == nil || s.store == nil {
		return CatalogStats{}, nil
	}
	stats, err := s.store.CatalogStats(ctx)
	if err != nil {
		return CatalogStats{}, err
	}
	return FromCatalogStats(stats), nil
}
