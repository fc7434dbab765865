package catalog

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cinefuse/internal/film"
)

// Film is one catalog row. Ratings are populated only by lookups that load
// the per-source set; list queries leave the slice nil.
type Film struct {
	TMDBID        int64
	IMDBID        string
	KinopoiskID   string
	Title         string
	OriginalTitle string
	Year          int
	Composite     decimal.NullDecimal
	Weighted      decimal.NullDecimal
	RatingsCount  int
	AggregatedAt  time.Time
	UpdatedAt     time.Time
	Ratings       []film.NormalizedRating
}

// Stats summarizes catalog contents for status output.
type Stats struct {
	Films              int
	Rated              int
	Ratings            int
	OldestAggregatedAt time.Time
	NewestAggregatedAt time.Time
}

const filmColumns = "tmdb_id, imdb_id, kinopoisk_id, title, original_title, year, composite_rating, weighted_rating, ratings_count, aggregated_at, updated_at"

func scanFilm(scanner interface{ Scan(dest ...any) error }) (*Film, error) {
	var (
		tmdbID        int64
		imdbID        sql.NullString
		kinopoiskID   sql.NullString
		title         sql.NullString
		originalTitle sql.NullString
		year          sql.NullInt64
		composite     sql.NullString
		weighted      sql.NullString
		ratingsCount  sql.NullInt64
		aggregatedRaw sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&tmdbID,
		&imdbID,
		&kinopoiskID,
		&title,
		&originalTitle,
		&year,
		&composite,
		&weighted,
		&ratingsCount,
		&aggregatedRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	f := &Film{
		TMDBID:        tmdbID,
		IMDBID:        imdbID.String,
		KinopoiskID:   kinopoiskID.String,
		Title:         title.String,
		OriginalTitle: originalTitle.String,
		Year:          int(year.Int64),
		Composite:     decimalFromColumn(composite),
		Weighted:      decimalFromColumn(weighted),
		RatingsCount:  int(ratingsCount.Int64),
	}
	if aggregated, err := parseTimeString(aggregatedRaw.String); err == nil {
		f.AggregatedAt = aggregated
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		f.UpdatedAt = updated
	}
	return f, nil
}

// decimalFromColumn parses a stored fixed-point string. Scores are stored as
// text so the two-decimal rendering round-trips without float drift.
func decimalFromColumn(value sql.NullString) decimal.NullDecimal {
	if !value.Valid || value.String == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(value.String)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func nullableDecimal(value decimal.NullDecimal) any {
	if !value.Valid {
		return nil
	}
	return value.Decimal.StringFixed(2)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
