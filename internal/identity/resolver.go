package identity

import (
	"context"
	"strconv"
	"strings"

	"log/slog"

	"cinefuse/internal/film"
	"cinefuse/internal/logging"
	"cinefuse/internal/providers"
)

// yearTolerance bounds how far a validated search result's year may drift
// from the reference year.
const yearTolerance = 2

// Resolver locates a film reference inside a provider's identifier space.
// It holds no per-resolution state; one instance serves every aggregation.
type Resolver struct {
	logger *slog.Logger
}

// New builds a resolver. A nil logger disables resolution logging.
func New(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logging.NewComponentLogger(logger, "identity")}
}

// Resolve walks a fixed chain against one provider, first success wins:
// exact cross-reference lookup, validated native-ID lookup, title search
// validated by year window and folded title equality, and finally a
// sanitized-title search for the regional catalog only. A reference no step
// can locate resolves to nil, which is a valid outcome, not an error; a step
// error surfaces only when the whole chain comes up empty.
func (r *Resolver) Resolve(ctx context.Context, adapter providers.Adapter, ref film.Ref) (*film.ProviderRecord, error) {
	if adapter == nil || !ref.HasIdentity() {
		return nil, nil
	}
	tag := adapter.Tag()
	logger := r.logger.With(logging.String(logging.FieldProvider, tag.String()))

	var lastErr error

	if imdbID := strings.TrimSpace(ref.IMDBID); imdbID != "" {
		if lookup, ok := adapter.(providers.CrossRefLookup); ok {
			record, err := lookup.GetByCrossRefID(ctx, imdbID, ref.BestTitle(), ref.Year)
			switch {
			case err != nil:
				lastErr = err
				logging.WarnWithContext(logger, "cross-reference lookup failed", "identity_crossref_failed",
					logging.String("imdb_id", imdbID),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "verify provider connectivity and API key"),
					logging.String(logging.FieldImpact, "falling through to title search"),
				)
			case record != nil:
				r.logResolved(logger, "cross_reference", record)
				return record, nil
			}
		}
	}

	if nativeID := nativeIDFor(ref, tag); nativeID != "" {
		record, err := adapter.GetByNativeID(ctx, nativeID)
		switch {
		case err != nil:
			lastErr = err
			logging.WarnWithContext(logger, "native lookup failed", "identity_native_failed",
				logging.String("native_id", nativeID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify provider connectivity and API key"),
				logging.String(logging.FieldImpact, "falling through to title search"),
			)
		case record != nil:
			r.logResolved(logger, "native_id", record)
			return record, nil
		}
	}

	// The title pass searches unconstrained and filters client-side so the
	// year window genuinely tolerates drift instead of inheriting the
	// provider's exact-year filter.
	title := ref.BestTitle()
	if title != "" {
		records, err := adapter.SearchByTitle(ctx, title, 0, 1)
		if err != nil {
			lastErr = err
			logging.WarnWithContext(logger, "title search failed", "identity_search_failed",
				logging.String("query", title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify provider connectivity and API key"),
				logging.String(logging.FieldImpact, "reference may resolve with fewer providers"),
			)
		} else {
			for i := range records {
				if matchesRef(ref, &records[i]) {
					r.logResolved(logger, "title_search", &records[i])
					return &records[i], nil
				}
			}
		}
	}

	// Regional records often carry only a localized title that can never
	// fold-match the reference, so the last step trusts the catalog's own
	// year-constrained ranking and takes the first hit.
	if tag == film.ProviderKinopoisk {
		sanitized := film.SanitizeSearchTitle(title)
		if sanitized != "" {
			records, err := adapter.SearchByTitle(ctx, sanitized, ref.Year, 1)
			if err != nil {
				lastErr = err
				logging.WarnWithContext(logger, "sanitized search failed", "identity_search_failed",
					logging.String("query", sanitized),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "verify provider connectivity and API key"),
					logging.String(logging.FieldImpact, "reference may resolve with fewer providers"),
				)
			} else if len(records) > 0 {
				r.logResolved(logger, "sanitized_search", &records[0])
				return &records[0], nil
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	attrs := logging.DecisionAttrs("identity_resolution", "miss", "chain exhausted")
	attrs = append(attrs, logging.String("ref", ref.String()))
	logger.Debug("reference not resolved", logging.Args(attrs...)...)
	return nil, nil
}

func (r *Resolver) logResolved(logger *slog.Logger, step string, record *film.ProviderRecord) {
	attrs := logging.DecisionAttrs("identity_resolution", "resolved", step)
	attrs = append(attrs,
		logging.String("native_id", record.NativeID),
		logging.String("title", record.BestTitle()),
		logging.Int("year", record.Year),
	)
	logger.Debug("reference resolved", logging.Args(attrs...)...)
}

// nativeIDFor maps a reference onto a provider's native identifier space.
// The aggregator's native space is IMDb IDs; the regional catalog's IDs are
// never carried by a bare reference.
func nativeIDFor(ref film.Ref, tag film.Provider) string {
	switch tag {
	case film.ProviderTMDB:
		if ref.TMDBID > 0 {
			return strconv.FormatInt(ref.TMDBID, 10)
		}
	case film.ProviderOMDB:
		return strings.TrimSpace(ref.IMDBID)
	}
	return ""
}

// matchesRef validates a search candidate against the reference: the year
// must sit inside the tolerance window and one reference title must fold-match
// one candidate title. A reference without a year validates on title alone;
// a candidate without a year cannot be validated against one.
func matchesRef(ref film.Ref, record *film.ProviderRecord) bool {
	if !yearWithin(record.Year, ref.Year) {
		return false
	}
	for _, want := range []string{ref.Title, ref.OriginalTitle} {
		if want == "" {
			continue
		}
		if film.TitlesMatch(want, record.Title) || film.TitlesMatch(want, record.OriginalTitle) {
			return true
		}
	}
	return false
}

func yearWithin(got, want int) bool {
	if want == 0 {
		return true
	}
	if got == 0 {
		return false
	}
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= yearTolerance
}
