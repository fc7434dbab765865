// Package film defines the domain types shared across the aggregation
// pipeline: film references, per-provider records, raw and normalized
// ratings, and the unified aggregation result.
//
// Records are constructed through validating constructors so malformed
// provider payloads are rejected at the adapter boundary instead of leaking
// loosely-shaped data into the resolver and scoring code.
package film

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies one of the three upstream catalogs.
type Provider string

const (
	// ProviderTMDB is the primary catalog: canonical titles, years, and the
	// provider's own community rating.
	ProviderTMDB Provider = "tmdb"
	// ProviderOMDB is the ratings aggregator, keyed by IMDb identifiers.
	ProviderOMDB Provider = "omdb"
	// ProviderKinopoisk is the regional catalog with its own identifier space.
	ProviderKinopoisk Provider = "kinopoisk"
)

// KnownProviders lists every provider tag in display order.
var KnownProviders = []Provider{ProviderTMDB, ProviderOMDB, ProviderKinopoisk}

func (p Provider) String() string { return string(p) }

// Valid reports whether the tag names one of the known providers.
func (p Provider) Valid() bool {
	switch p {
	case ProviderTMDB, ProviderOMDB, ProviderKinopoisk:
		return true
	}
	return false
}

// Source tags the origin of a single rating. Tags are open-ended: adapters
// may emit sources beyond the constants below and the scoring code treats
// them uniformly.
type Source string

const (
	SourceTMDB           Source = "tmdb"
	SourceIMDB           Source = "imdb"
	SourceMetascore      Source = "metascore"
	SourceRottenTomatoes Source = "rotten_tomatoes"
	SourceKinopoisk      Source = "kinopoisk"
	SourceCritics        Source = "critics"
)

func (s Source) String() string { return string(s) }

// Ref is the resolver's query unit: a partial film reference carrying
// whichever identifying fields the caller knows. At least one of TMDBID,
// IMDBID, or Title must be present. Treat as immutable after construction.
type Ref struct {
	TMDBID        int64  `json:"tmdb_id,omitempty"`
	IMDBID        string `json:"imdb_id,omitempty"`
	Title         string `json:"title,omitempty"`
	OriginalTitle string `json:"original_title,omitempty"`
	Year          int    `json:"year,omitempty"`
}

// NewRef validates and builds a film reference.
func NewRef(tmdbID int64, imdbID, title, originalTitle string, year int) (Ref, error) {
	ref := Ref{
		TMDBID:        tmdbID,
		IMDBID:        strings.TrimSpace(imdbID),
		Title:         strings.TrimSpace(title),
		OriginalTitle: strings.TrimSpace(originalTitle),
		Year:          year,
	}
	if !ref.HasIdentity() {
		return Ref{}, fmt.Errorf("film reference needs a tmdb id, imdb id, or title")
	}
	if year < 0 {
		return Ref{}, fmt.Errorf("film reference year %d is negative", year)
	}
	return ref, nil
}

// HasIdentity reports whether the reference carries at least one usable
// identifying field.
func (r Ref) HasIdentity() bool {
	return r.TMDBID > 0 || r.IMDBID != "" || r.Title != ""
}

// BestTitle returns the title, falling back to the original title.
func (r Ref) BestTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.OriginalTitle
}

func (r Ref) String() string {
	parts := make([]string, 0, 4)
	if r.TMDBID > 0 {
		parts = append(parts, fmt.Sprintf("tmdb:%d", r.TMDBID))
	}
	if r.IMDBID != "" {
		parts = append(parts, "imdb:"+r.IMDBID)
	}
	if title := r.BestTitle(); title != "" {
		parts = append(parts, fmt.Sprintf("title:%q", title))
	}
	if r.Year > 0 {
		parts = append(parts, fmt.Sprintf("year:%d", r.Year))
	}
	if len(parts) == 0 {
		return "(empty reference)"
	}
	return strings.Join(parts, " ")
}

// RawRating is one provider-reported rating on its native scale.
// Invariant: Max > 0 and Value within [0, Max].
type RawRating struct {
	Source Source  `json:"source"`
	Value  float64 `json:"value"`
	Max    float64 `json:"max"`
	Votes  int64   `json:"votes,omitempty"`
}

// NewRawRating validates and builds a rating. Votes of zero means the
// provider did not report a count.
func NewRawRating(source Source, value, max float64, votes int64) (RawRating, error) {
	if strings.TrimSpace(string(source)) == "" {
		return RawRating{}, fmt.Errorf("rating needs a source tag")
	}
	if max <= 0 {
		return RawRating{}, fmt.Errorf("rating %s has non-positive scale max %.2f", source, max)
	}
	if value < 0 || value > max {
		return RawRating{}, fmt.Errorf("rating %s value %.2f outside [0, %.2f]", source, value, max)
	}
	if votes < 0 {
		votes = 0
	}
	return RawRating{Source: source, Value: value, Max: max, Votes: votes}, nil
}

// NormalizedRating is a RawRating projected onto the common 0-10 scale.
type NormalizedRating struct {
	RawRating
	Normalized float64 `json:"normalized"`
}

// ProviderRecord is one provider's validated view of a film.
type ProviderRecord struct {
	Provider      Provider    `json:"provider"`
	NativeID      string      `json:"native_id"`
	Title         string      `json:"title,omitempty"`
	OriginalTitle string      `json:"original_title,omitempty"`
	Year          int         `json:"year,omitempty"`
	CrossRefID    string      `json:"cross_ref_id,omitempty"`
	Ratings       []RawRating `json:"ratings,omitempty"`
}

// NewProviderRecord validates the identifying fields of a provider payload.
// Records without a native ID are rejected; search results that lack one are
// dropped by the adapters before reaching this constructor.
func NewProviderRecord(provider Provider, nativeID, title, originalTitle string, year int, crossRefID string) (*ProviderRecord, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("unknown provider tag %q", provider)
	}
	nativeID = strings.TrimSpace(nativeID)
	if nativeID == "" {
		return nil, fmt.Errorf("%s record is missing a native id", provider)
	}
	return &ProviderRecord{
		Provider:      provider,
		NativeID:      nativeID,
		Title:         strings.TrimSpace(title),
		OriginalTitle: strings.TrimSpace(originalTitle),
		Year:          year,
		CrossRefID:    strings.TrimSpace(crossRefID),
	}, nil
}

// AddRating appends a rating to the record.
func (pr *ProviderRecord) AddRating(r RawRating) {
	pr.Ratings = append(pr.Ratings, r)
}

// BestTitle returns the record's title, falling back to the original title.
func (pr *ProviderRecord) BestTitle() string {
	if pr.Title != "" {
		return pr.Title
	}
	return pr.OriginalTitle
}

// Ref derives a film reference from the record for downstream resolution.
func (pr *ProviderRecord) Ref() Ref {
	ref := Ref{
		IMDBID:        pr.CrossRefID,
		Title:         pr.Title,
		OriginalTitle: pr.OriginalTitle,
		Year:          pr.Year,
	}
	if pr.Provider == ProviderTMDB {
		if id, err := strconv.ParseInt(pr.NativeID, 10, 64); err == nil {
			ref.TMDBID = id
		}
	}
	return ref
}

// Unified is the aggregation result: canonical identity plus the merged,
// source-deduplicated rating set and its composite scores.
type Unified struct {
	Title         string              `json:"title"`
	OriginalTitle string              `json:"original_title,omitempty"`
	Year          int                 `json:"year,omitempty"`
	TMDBID        int64               `json:"tmdb_id"`
	IMDBID        string              `json:"imdb_id,omitempty"`
	KinopoiskID   string              `json:"kinopoisk_id,omitempty"`
	Records       []ProviderRecord    `json:"records,omitempty"`
	Ratings       []NormalizedRating  `json:"ratings,omitempty"`
	Composite     decimal.NullDecimal `json:"composite"`
	Weighted      decimal.NullDecimal `json:"weighted"`
	AggregatedAt  time.Time           `json:"aggregated_at"`
}

// RatingsCount reports how many distinct rating sources the film carries.
func (u *Unified) RatingsCount() int { return len(u.Ratings) }

// PutRating inserts a normalized rating, replacing any existing entry with
// the same source tag. Replacement keeps the rating set deduplicated by
// source; it never appends a second entry for a tag.
func (u *Unified) PutRating(nr NormalizedRating) {
	for i := range u.Ratings {
		if u.Ratings[i].Source == nr.Source {
			u.Ratings[i] = nr
			return
		}
	}
	u.Ratings = append(u.Ratings, nr)
}

// RatingBySource looks up a rating by its source tag.
func (u *Unified) RatingBySource(source Source) (NormalizedRating, bool) {
	for _, nr := range u.Ratings {
		if nr.Source == source {
			return nr, true
		}
	}
	return NormalizedRating{}, false
}

// Record returns the stored record for a provider, if that provider
// resolved during aggregation.
func (u *Unified) Record(provider Provider) (*ProviderRecord, bool) {
	for i := range u.Records {
		if u.Records[i].Provider == provider {
			return &u.Records[i], true
		}
	}
	return nil, false
}
