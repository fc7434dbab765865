package tmdb

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

// Client wraps the TMDB API, the primary film catalog.
type Client struct {
	gw       *gateway.Gateway
	language string
	cacheTTL time.Duration
}

// New builds the TMDB adapter from configuration. The token rides an
// Authorization bearer header on every request.
func New(cfg *config.Config, store cache.Store, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("tmdb: config is nil")
	}
	token := strings.TrimSpace(cfg.TMDB.APIKey)
	if token == "" {
		return nil, errors.New("tmdb: api key required")
	}
	gw, err := gateway.FromConfig(cfg, gateway.Options{
		Provider: film.ProviderTMDB.String(),
		BaseURL:  cfg.TMDB.BaseURL,
		Auth: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		},
		Cache:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		gw:       gw,
		language: strings.TrimSpace(cfg.TMDB.Language),
		cacheTTL: time.Duration(cfg.TMDB.CacheTTLHours) * time.Hour,
	}, nil
}

// Tag returns the provider identity tag.
func (c *Client) Tag() film.Provider { return film.ProviderTMDB }

type movieResult struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	ReleaseDate   string  `json:"release_date"`
	IMDBID        string  `json:"imdb_id"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
}

type searchResponse struct {
	Page         int           `json:"page"`
	Results      []movieResult `json:"results"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int           `json:"total_results"`
}

type findResponse struct {
	MovieResults []movieResult `json:"movie_results"`
}

// SearchByTitle queries the movie search endpoint. Results without a native
// ID are dropped rather than surfaced as unusable records.
func (c *Client) SearchByTitle(ctx context.Context, title string, year, page int) ([]film.ProviderRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("tmdb: search title must not be empty")
	}
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("query", title)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	if c.language != "" {
		params.Set("language", c.language)
	}
	if year > 0 {
		params.Set("primary_release_year", strconv.Itoa(year))
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: "search/movie",
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("tmdb: search %q: %w", title, err)
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("tmdb: decode search response: %w", err)
	}
	return recordsFromResults(payload.Results), nil
}

// GetByNativeID fetches movie details and verifies the payload identity: a
// body whose embedded ID differs from the requested one is a miss, never a
// record for the wrong film.
func (c *Client) GetByNativeID(ctx context.Context, id string) (*film.ProviderRecord, error) {
	movieID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil || movieID <= 0 {
		return nil, nil
	}
	params := url.Values{}
	if c.language != "" {
		params.Set("language", c.language)
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: fmt.Sprintf("movie/%d", movieID),
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmdb: movie %d: %w", movieID, err)
	}
	var payload movieResult
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("tmdb: decode movie details: %w", err)
	}
	if payload.ID != movieID {
		return nil, nil
	}
	record, err := recordFromMovie(payload)
	if err != nil {
		return nil, nil
	}
	return record, nil
}

// FindByCrossRefID locates a movie through the external-ID index, used when
// a reference carries only an IMDb identifier.
func (c *Client) FindByCrossRefID(ctx context.Context, imdbID string) (*film.ProviderRecord, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	if c.language != "" {
		params.Set("language", c.language)
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: "find/" + url.PathEscape(imdbID),
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmdb: find %s: %w", imdbID, err)
	}
	var payload findResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("tmdb: decode find response: %w", err)
	}
	for _, entry := range payload.MovieResults {
		record, err := recordFromMovie(entry)
		if err != nil {
			continue
		}
		// The index does not echo the queried ID back in movie results, so
		// stamp it: every hit here is keyed by that IMDb ID.
		record.CrossRefID = imdbID
		return record, nil
	}
	return nil, nil
}

// Trending returns one page of the daily trending movie chart. Responses are
// not cached; the chart is the freshness signal itself.
func (c *Client) Trending(ctx context.Context, page int) ([]film.ProviderRecord, error) {
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if c.language != "" {
		params.Set("language", c.language)
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: "trending/movie/day",
		Params:   params,
	})
	if err != nil {
		return nil, fmt.Errorf("tmdb: trending page %d: %w", page, err)
	}
	var payload searchResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("tmdb: decode trending response: %w", err)
	}
	return recordsFromResults(payload.Results), nil
}

// Health probes the configuration endpoint, the cheapest authenticated call
// the API offers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.gw.Do(ctx, gateway.Request{
		Endpoint:   "configuration",
		MaxRetries: 1,
	})
	if err != nil {
		return fmt.Errorf("tmdb: health probe: %w", err)
	}
	return nil
}

func recordsFromResults(results []movieResult) []film.ProviderRecord {
	records := make([]film.ProviderRecord, 0, len(results))
	for _, entry := range results {
		record, err := recordFromMovie(entry)
		if err != nil {
			continue
		}
		records = append(records, *record)
	}
	return records
}

func recordFromMovie(entry movieResult) (*film.ProviderRecord, error) {
	if entry.ID <= 0 {
		return nil, errors.New("tmdb: result missing id")
	}
	record, err := film.NewProviderRecord(
		film.ProviderTMDB,
		strconv.FormatInt(entry.ID, 10),
		entry.Title,
		entry.OriginalTitle,
		yearFromDate(entry.ReleaseDate),
		entry.IMDBID,
	)
	if err != nil {
		return nil, err
	}
	if entry.VoteAverage > 0 {
		if rating, err := film.NewRawRating(film.SourceTMDB, entry.VoteAverage, 10, entry.VoteCount); err == nil {
			record.AddRating(rating)
		}
	}
	return record, nil
}

func yearFromDate(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
