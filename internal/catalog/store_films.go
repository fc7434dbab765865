package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinefuse/internal/film"
)

// UpsertUnified writes an aggregation result, replacing the stored rating set
// for that film in the same transaction.
func (s *Store) UpsertUnified(ctx context.Context, unified *film.Unified) error {
	if unified == nil {
		return errors.New("unified film is nil")
	}
	if unified.TMDBID <= 0 {
		return errors.New("unified film needs a tmdb id")
	}

	aggregated := unified.AggregatedAt
	if aggregated.IsZero() {
		aggregated = time.Now().UTC()
	}
	updated := time.Now().UTC().Format(time.RFC3339Nano)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO films (
                tmdb_id, imdb_id, kinopoisk_id, title, original_title, year,
                composite_rating, weighted_rating, ratings_count, aggregated_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(tmdb_id) DO UPDATE SET
                imdb_id = excluded.imdb_id,
                kinopoisk_id = excluded.kinopoisk_id,
                title = excluded.title,
                original_title = excluded.original_title,
                year = excluded.year,
                composite_rating = excluded.composite_rating,
                weighted_rating = excluded.weighted_rating,
                ratings_count = excluded.ratings_count,
                aggregated_at = excluded.aggregated_at,
                updated_at = excluded.updated_at`,
			unified.TMDBID,
			nullableString(unified.IMDBID),
			nullableString(unified.KinopoiskID),
			unified.Title,
			nullableString(unified.OriginalTitle),
			nullableInt64(int64(unified.Year)),
			nullableDecimal(unified.Composite),
			nullableDecimal(unified.Weighted),
			unified.RatingsCount(),
			aggregated.UTC().Format(time.RFC3339Nano),
			updated,
		); err != nil {
			return fmt.Errorf("upsert film: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM film_ratings WHERE tmdb_id = ?`, unified.TMDBID); err != nil {
			return fmt.Errorf("clear ratings: %w", err)
		}
		for _, nr := range unified.Ratings {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO film_ratings (tmdb_id, source, value, scale_max, normalized, votes)
                 VALUES (?, ?, ?, ?, ?, ?)`,
				unified.TMDBID,
				string(nr.Source),
				nr.Value,
				nr.Max,
				nr.Normalized,
				nr.Votes,
			); err != nil {
				return fmt.Errorf("insert rating %s: %w", nr.Source, err)
			}
		}
		return nil
	})
}

// FilmByTMDBID fetches one film with its rating set, or nil when absent.
func (s *Store) FilmByTMDBID(ctx context.Context, tmdbID int64) (*Film, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM films WHERE tmdb_id = ?`, tmdbID)
	f, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film: %w", err)
	}
	if err := s.loadRatings(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) loadRatings(ctx context.Context, f *Film) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source, value, scale_max, normalized, votes FROM film_ratings WHERE tmdb_id = ? ORDER BY source`,
		f.TMDBID,
	)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			source     string
			value      float64
			scaleMax   float64
			normalized float64
			votes      int64
		)
		if err := rows.Scan(&source, &value, &scaleMax, &normalized, &votes); err != nil {
			return err
		}
		f.Ratings = append(f.Ratings, film.NormalizedRating{
			RawRating: film.RawRating{
				Source: film.Source(source),
				Value:  value,
				Max:    scaleMax,
				Votes:  votes,
			},
			Normalized: normalized,
		})
	}
	return rows.Err()
}

// List returns films ordered by most recent aggregation. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Film, error) {
	query := `SELECT ` + filmColumns + ` FROM films ORDER BY aggregated_at DESC, tmdb_id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryFilms(ctx, query, args...)
}

// Search returns films whose title or original title contains the query,
// optionally constrained to an exact year.
func (s *Store) Search(ctx context.Context, query string, year, limit int) ([]*Film, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query must not be empty")
	}
	pattern := "%" + escapeLike(query) + "%"

	stmt := `SELECT ` + filmColumns + ` FROM films
         WHERE (title LIKE ? ESCAPE '\' OR original_title LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern}
	if year > 0 {
		stmt += ` AND year = ?`
		args = append(args, year)
	}
	stmt += ` ORDER BY aggregated_at DESC, tmdb_id`
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryFilms(ctx, stmt, args...)
}

// StaleFilms returns references for films whose last aggregation predates the
// cutoff, oldest first, shaped for re-enqueueing.
func (s *Store) StaleFilms(ctx context.Context, olderThan time.Time, limit int) ([]film.Ref, error) {
	query := `SELECT tmdb_id, imdb_id, title, original_title, year FROM films
         WHERE aggregated_at < ? ORDER BY aggregated_at`
	args := []any{olderThan.UTC().Format(time.RFC3339Nano)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stale films: %w", err)
	}
	defer rows.Close()

	var refs []film.Ref
	for rows.Next() {
		var (
			tmdbID        int64
			imdbID        sql.NullString
			title         sql.NullString
			originalTitle sql.NullString
			year          sql.NullInt64
		)
		if err := rows.Scan(&tmdbID, &imdbID, &title, &originalTitle, &year); err != nil {
			return nil, err
		}
		refs = append(refs, film.Ref{
			TMDBID:        tmdbID,
			IMDBID:        imdbID.String,
			Title:         title.String,
			OriginalTitle: originalTitle.String,
			Year:          int(year.Int64),
		})
	}
	return refs, rows.Err()
}

// Remove deletes a film; its ratings go with it via the foreign key cascade.
func (s *Store) Remove(ctx context.Context, tmdbID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM films WHERE tmdb_id = ?`, tmdbID)
	if err != nil {
		return false, fmt.Errorf("delete film: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CatalogStats summarizes the stored films for diagnostics.
func (s *Store) CatalogStats(ctx context.Context) (Stats, error) {
	var stats Stats
	var oldest, newest sql.NullString
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1),
                COALESCE(SUM(CASE WHEN composite_rating IS NOT NULL THEN 1 ELSE 0 END), 0),
                MIN(aggregated_at),
                MAX(aggregated_at)
         FROM films`,
	)
	if err := row.Scan(&stats.Films, &stats.Rated, &oldest, &newest); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	if oldest.Valid {
		if t, err := parseTimeString(oldest.String); err == nil {
			stats.OldestAggregatedAt = t
		}
	}
	if newest.Valid {
		if t, err := parseTimeString(newest.String); err == nil {
			stats.NewestAggregatedAt = t
		}
	}

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM film_ratings`)
	if err := row.Scan(&stats.Ratings); err != nil {
		return Stats{}, fmt.Errorf("count ratings: %w", err)
	}
	return stats, nil
}

func (s *Store) queryFilms(ctx context.Context, query string, args ...any) ([]*Film, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query films: %w", err)
	}
	defer rows.Close()

	var films []*Film
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	return films, rows.Err()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
