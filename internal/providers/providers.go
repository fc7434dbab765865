package providers

import (
	"context"

	"log/slog"

	"cinefuse/internal/cache"
	"cinefuse/internal/config"
	"cinefuse/internal/film"
	"cinefuse/internal/providers/kinopoisk"
	"cinefuse/internal/providers/omdb"
	"cinefuse/internal/providers/tmdb"
)

// Adapter is the contract every provider client satisfies: best-effort title
// search plus an identity-verified native-ID lookup where nil means miss.
type Adapter interface {
	Tag() film.Provider
	SearchByTitle(ctx context.Context, title string, year, page int) ([]film.ProviderRecord, error)
	GetByNativeID(ctx context.Context, id string) (*film.ProviderRecord, error)
}

// CrossRefLookup is satisfied by providers that can resolve a film from an
// IMDb cross-reference before any native ID for them is known.
type CrossRefLookup interface {
	GetByCrossRefID(ctx context.Context, imdbID, title string, year int) (*film.ProviderRecord, error)
}

var (
	_ Adapter        = (*tmdb.Client)(nil)
	_ Adapter        = (*omdb.Client)(nil)
	_ Adapter        = (*kinopoisk.Client)(nil)
	_ CrossRefLookup = (*kinopoisk.Client)(nil)
)

// Set bundles the constructed provider clients. TMDB is always present; the
// optional providers stay nil when disabled in configuration.
type Set struct {
	TMDB      *tmdb.Client
	OMDB      *omdb.Client
	Kinopoisk *kinopoisk.Client
}

// New constructs every enabled provider against a shared response cache.
// The primary catalog is mandatory. Disabled providers are skipped outright,
// so a missing key for an optional provider never blocks startup.
func New(cfg *config.Config, store cache.Store, logger *slog.Logger) (*Set, error) {
	primary, err := tmdb.New(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	set := &Set{TMDB: primary}
	if cfg.OMDB.Enabled {
		client, err := omdb.New(cfg, store, logger)
		if err != nil {
			return nil, err
		}
		set.OMDB = client
	}
	if cfg.Kinopoisk.Enabled {
		client, err := kinopoisk.New(cfg, store, logger)
		if err != nil {
			return nil, err
		}
		set.Kinopoisk = client
	}
	return set, nil
}

// Enabled returns the constructed adapters in precedence order: primary,
// aggregator, regional.
func (s *Set) Enabled() []Adapter {
	adapters := make([]Adapter, 0, len(film.KnownProviders))
	if s.TMDB != nil {
		adapters = append(adapters, s.TMDB)
	}
	if s.OMDB != nil {
		adapters = append(adapters, s.OMDB)
	}
	if s.Kinopoisk != nil {
		adapters = append(adapters, s.Kinopoisk)
	}
	return adapters
}

// Status reports one provider's probe outcome.
type Status struct {
	Provider film.Provider
	Enabled  bool
	Healthy  bool
	Detail   string
}

// Health probes every provider with live requests. Disabled providers report
// a status too so operators always see all three rows.
func (s *Set) Health(ctx context.Context) []Status {
	var tmdbProbe, omdbProbe, kinopoiskProbe func(context.Context) error
	if s.TMDB != nil {
		tmdbProbe = s.TMDB.Health
	}
	if s.OMDB != nil {
		omdbProbe = s.OMDB.Health
	}
	if s.Kinopoisk != nil {
		kinopoiskProbe = s.Kinopoisk.Health
	}
	return []Status{
		checkOne(ctx, film.ProviderTMDB, tmdbProbe),
		checkOne(ctx, film.ProviderOMDB, omdbProbe),
		checkOne(ctx, film.ProviderKinopoisk, kinopoiskProbe),
	}
}

func checkOne(ctx context.Context, provider film.Provider, probe func(context.Context) error) Status {
	status := Status{Provider: provider}
	if probe == nil {
		status.Detail = "disabled"
		return status
	}
	status.Enabled = true
	if err := probe(ctx); err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Healthy = true
	return status
}
