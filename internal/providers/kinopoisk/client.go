package kinopoisk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"

	json "github.com/goccy/go-json"

	"cinefuse/internal/cache"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/gateway"
)

// Client wraps the Kinopoisk API, the regional catalog. Kinopoisk keys films
// by its own numeric identifier and exposes no direct IMDb lookup, so
// cross-reference resolution goes through keyword search.
type Client struct {
	gw       *gateway.Gateway
	cacheTTL time.Duration
}

// New builds the Kinopoisk adapter from configuration. The key travels in an
// X-API-KEY header on every request.
func New(cfg *config.Config, store cache.Store, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("kinopoisk: config is nil")
	}
	key := strings.TrimSpace(cfg.Kinopoisk.APIKey)
	if key == "" {
		return nil, errors.New("kinopoisk: api key required")
	}
	gw, err := gateway.FromConfig(cfg, gateway.Options{
		Provider: film.ProviderKinopoisk.String(),
		BaseURL:  cfg.Kinopoisk.BaseURL,
		Auth: func(r *http.Request) {
			r.Header.Set("X-API-KEY", key)
			r.Header.Set("Content-Type", "application/json")
		},
		Cache:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		gw:       gw,
		cacheTTL: time.Duration(cfg.Kinopoisk.CacheTTLHours) * time.Hour,
	}, nil
}

// Tag returns the provider identity tag.
func (c *Client) Tag() film.Provider { return film.ProviderKinopoisk }

// filmEntry covers both the search item and detail payload shapes. Rating
// fields arrive as JSON null for unrated films, which leaves the zero value.
type filmEntry struct {
	KinopoiskID         int64   `json:"kinopoiskId"`
	IMDBID              string  `json:"imdbId"`
	NameRu              string  `json:"nameRu"`
	NameEn              string  `json:"nameEn"`
	NameOriginal        string  `json:"nameOriginal"`
	Year                int     `json:"year"`
	RatingKinopoisk     float64 `json:"ratingKinopoisk"`
	RatingKinopoiskVote int64   `json:"ratingKinopoiskVoteCount"`
	RatingIMDB          float64 `json:"ratingImdb"`
	RatingIMDBVote      int64   `json:"ratingImdbVoteCount"`
	RatingCritics       float64 `json:"ratingFilmCritics"`
	RatingCriticsVote   int64   `json:"ratingFilmCriticsVoteCount"`
}

type searchResponse struct {
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
	Items      []filmEntry `json:"items"`
}

// SearchByTitle queries the keyword search, constraining by release year when
// one is known.
func (c *Client) SearchByTitle(ctx context.Context, title string, year, page int) ([]film.ProviderRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("kinopoisk: search title must not be empty")
	}
	return c.search(ctx, title, year, page)
}

// GetByNativeID fetches film details and verifies the payload identity
// against the requested Kinopoisk ID.
func (c *Client) GetByNativeID(ctx context.Context, id string) (*film.ProviderRecord, error) {
	filmID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || filmID <= 0 {
		return nil, nil
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: fmt.Sprintf("v2.2/films/%d", filmID),
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("kinopoisk: film %d: %w", filmID, err)
	}
	var payload filmEntry
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("kinopoisk: decode film details: %w", err)
	}
	if payload.KinopoiskID != filmID {
		return nil, nil
	}
	record, err := recordFromEntry(payload)
	if err != nil {
		return nil, nil
	}
	return record, nil
}

// GetByCrossRefID resolves a film by IMDb ID. The API has no external-ID
// index, so the adapter searches the ID as a keyword and scans the results
// for an exact cross-reference match, then falls back to a sanitized
// title+year search when the keyword pass comes up empty.
func (c *Client) GetByCrossRefID(ctx context.Context, imdbID, title string, year int) (*film.ProviderRecord, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID != "" {
		records, err := c.search(ctx, imdbID, 0, 1)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if strings.EqualFold(records[i].CrossRefID, imdbID) {
				return &records[i], nil
			}
		}
	}

	sanitized := film.SanitizeSearchTitle(title)
	if sanitized == "" {
		return nil, nil
	}
	records, err := c.search(ctx, sanitized, year, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Health probes the filters endpoint with a single attempt; it is static
// reference data and the cheapest authenticated call available.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.gw.Do(ctx, gateway.Request{
		Endpoint:   "v2.2/films/filters",
		MaxRetries: 1,
	})
	if err != nil {
		return fmt.Errorf("kinopoisk: health probe: %w", err)
	}
	return nil
}

func (c *Client) search(ctx context.Context, keyword string, year, page int) ([]film.ProviderRecord, error) {
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("page", strconv.Itoa(page))
	if year > 0 {
		params.Set("yearFrom", strconv.Itoa(year))
		params.Set("yearTo", strconv.Itoa(year))
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: "v2.2/films",
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("kinopoisk: search %q: %w", keyword, err)
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("kinopoisk: decode search response: %w", err)
	}
	records := make([]film.ProviderRecord, 0, len(payload.Items))
	for _, entry := range payload.Items {
		record, err := recordFromEntry(entry)
		if err != nil {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

func recordFromEntry(entry filmEntry) (*film.ProviderRecord, error) {
	if entry.KinopoiskID <= 0 {
		return nil, errors.New("kinopoisk: entry missing id")
	}
	record, err := film.NewProviderRecord(
		film.ProviderKinopoisk,
		strconv.FormatInt(entry.KinopoiskID, 10),
		firstNonEmpty(entry.NameRu, entry.NameEn, entry.NameOriginal),
		firstNonEmpty(entry.NameOriginal, entry.NameEn),
		entry.Year,
		entry.IMDBID,
	)
	if err != nil {
		return nil, err
	}
	attachRatings(record, entry)
	return record, nil
}

// attachRatings maps the entry's rating fields, all on a 0-10 scale. A zero
// value means the API reported null, so the rating is absent, not zero.
func attachRatings(record *film.ProviderRecord, entry filmEntry) {
	if entry.RatingKinopoisk > 0 {
		if rating, err := film.NewRawRating(film.SourceKinopoisk, entry.RatingKinopoisk, 10, entry.RatingKinopoiskVote); err == nil {
			record.AddRating(rating)
		}
	}
	if entry.RatingIMDB > 0 {
		if rating, err := film.NewRawRating(film.SourceIMDB, entry.RatingIMDB, 10, entry.RatingIMDBVote); err == nil {
			record.AddRating(rating)
		}
	}
	if entry.RatingCritics > 0 {
		if rating, err := film.NewRawRating(film.SourceCritics, entry.RatingCritics, 10, entry.RatingCriticsVote); err == nil {
			record.AddRating(rating)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
