package omdb

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

// The API lives entirely at the base path; operations differ only by query
// parameters.
const rootEndpoint = "/"

// healthProbeID is a stable, well-known title used to verify the API key.
const healthProbeID = "tt0111161"

// Client wraps the OMDB API, the ratings aggregator. OMDB's native
// identifier space is IMDb IDs, so every record it returns carries the same
// value as NativeID and CrossRefID.
type Client struct {
	gw       *gateway.Gateway
	cacheTTL time.Duration
}

// New builds the OMDB adapter from configuration. The key travels as an
// apikey query parameter appended after the cache key is derived.
func New(cfg *config.Config, store cache.Store, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("omdb: config is nil")
	}
	key := strings.TrimSpace(cfg.OMDB.APIKey)
	if key == "" {
		return nil, errors.New("omdb: api key required")
	}
	gw, err := gateway.FromConfig(cfg, gateway.Options{
		Provider: film.ProviderOMDB.String(),
		BaseURL:  cfg.OMDB.BaseURL,
		Auth: func(r *http.Request) {
			q := r.URL.Query()
			q.Set("apikey", key)
			r.URL.RawQuery = q.Encode()
		},
		Cache:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		gw:       gw,
		cacheTTL: time.Duration(cfg.OMDB.CacheTTLHours) * time.Hour,
	}, nil
}

// Tag returns the provider identity tag.
func (c *Client) Tag() film.Provider { return film.ProviderOMDB }

type ratingEntry struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type detailPayload struct {
	Title      string        `json:"Title"`
	Year       string        `json:"Year"`
	IMDBID     string        `json:"imdbID"`
	IMDBRating string        `json:"imdbRating"`
	IMDBVotes  string        `json:"imdbVotes"`
	Metascore  string        `json:"Metascore"`
	Ratings    []ratingEntry `json:"Ratings"`
	Response   string        `json:"Response"`
	Error      string        `json:"Error"`
}

type searchEntry struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDBID string `json:"imdbID"`
}

type searchPayload struct {
	Search   []searchEntry `json:"Search"`
	Response string        `json:"Response"`
	Error    string        `json:"Error"`
}

// SearchByTitle queries the title search. OMDB reports misses in-band with
// Response "False", which maps to an empty result set, not an error.
func (c *Client) SearchByTitle(ctx context.Context, title string, year, page int) ([]film.ProviderRecord, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("omdb: search title must not be empty")
	}
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	params.Set("s", title)
	params.Set("type", "movie")
	params.Set("page", strconv.Itoa(page))
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: rootEndpoint,
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("omdb: search %q: %w", title, err)
	}
	var payload searchPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("omdb: decode search response: %w", err)
	}
	if !isTrue(payload.Response) {
		return nil, nil
	}
	records := make([]film.ProviderRecord, 0, len(payload.Search))
	for _, entry := range payload.Search {
		record, err := film.NewProviderRecord(
			film.ProviderOMDB,
			entry.IMDBID,
			entry.Title,
			"",
			parseYear(entry.Year),
			entry.IMDBID,
		)
		if err != nil {
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// GetByNativeID fetches a detail record by IMDb ID. The echoed imdbID must
// match the requested one; OMDB reports misses in-band with Response "False".
func (c *Client) GetByNativeID(ctx context.Context, id string) (*film.ProviderRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	params := url.Values{}
	params.Set("i", id)

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint: rootEndpoint,
		Params:   params,
		UseCache: true,
		CacheTTL: c.cacheTTL,
	})
	if err != nil {
		if gateway.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("omdb: detail %s: %w", id, err)
	}
	var payload detailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("omdb: decode detail response: %w", err)
	}
	if !isTrue(payload.Response) {
		return nil, nil
	}
	if !strings.EqualFold(payload.IMDBID, id) {
		return nil, nil
	}
	record, err := film.NewProviderRecord(
		film.ProviderOMDB,
		payload.IMDBID,
		payload.Title,
		"",
		parseYear(payload.Year),
		payload.IMDBID,
	)
	if err != nil {
		return nil, nil
	}
	for _, rating := range parseRatings(payload) {
		record.AddRating(rating)
	}
	return record, nil
}

// RatingsByCrossRefID returns the aggregator's ratings for an IMDb ID keyed
// by source tag. A film OMDB does not know yields an empty map, not an error.
func (c *Client) RatingsByCrossRefID(ctx context.Context, imdbID string) (map[film.Source]film.RawRating, error) {
	record, err := c.GetByNativeID(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	ratings := make(map[film.Source]film.RawRating, 4)
	if record == nil {
		return ratings, nil
	}
	for _, rating := range record.Ratings {
		ratings[rating.Source] = rating
	}
	return ratings, nil
}

// Health fetches a well-known title with a single attempt to verify the key.
func (c *Client) Health(ctx context.Context) error {
	params := url.Values{}
	params.Set("i", healthProbeID)

	body, err := c.gw.Do(ctx, gateway.Request{
		Endpoint:   rootEndpoint,
		Params:     params,
		MaxRetries: 1,
	})
	if err != nil {
		return fmt.Errorf("omdb: health probe: %w", err)
	}
	var payload detailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("omdb: health probe decode: %w", err)
	}
	if !isTrue(payload.Response) {
		return fmt.Errorf("omdb: health probe rejected: %s", payload.Error)
	}
	return nil
}

// parseRatings extracts every parseable rating from a detail payload. Field
// values come first, then the Ratings array; a later parse for the same
// source tag replaces the earlier one. "N/A" drops the entry entirely so a
// missing score never collapses to zero.
func parseRatings(payload detailPayload) []film.RawRating {
	ordered := make([]film.RawRating, 0, 3)
	put := func(r film.RawRating) {
		for i := range ordered {
			if ordered[i].Source == r.Source {
				ordered[i] = r
				return
			}
		}
		ordered = append(ordered, r)
	}

	if value, ok := parseFloatField(payload.IMDBRating); ok {
		if rating, err := film.NewRawRating(film.SourceIMDB, value, 10, parseVotes(payload.IMDBVotes)); err == nil {
			put(rating)
		}
	}
	if value, ok := parseFloatField(payload.Metascore); ok {
		if rating, err := film.NewRawRating(film.SourceMetascore, value, 100, 0); err == nil {
			put(rating)
		}
	}
	for _, entry := range payload.Ratings {
		switch {
		case strings.EqualFold(entry.Source, "Rotten Tomatoes") && strings.HasSuffix(entry.Value, "%"):
			if value, ok := parseFloatField(strings.TrimSuffix(entry.Value, "%")); ok {
				if rating, err := film.NewRawRating(film.SourceRottenTomatoes, value, 100, 0); err == nil {
					put(rating)
				}
			}
		case strings.EqualFold(entry.Source, "Metacritic") && strings.Contains(entry.Value, "/"):
			parts := strings.SplitN(entry.Value, "/", 2)
			value, okValue := parseFloatField(parts[0])
			max, okMax := parseFloatField(parts[1])
			if okValue && okMax {
				if rating, err := film.NewRawRating(film.SourceMetascore, value, max, 0); err == nil {
					put(rating)
				}
			}
		}
	}
	return ordered
}

func parseFloatField(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func parseVotes(raw string) int64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0
	}
	votes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return votes
}

// parseYear reads the leading year from OMDB's year strings, which include
// spans like "1995-1996" for series re-releases.
func parseYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if len(raw) < 4 {
		return 0
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return 0
	}
	return year
}

func isTrue(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "True")
}
