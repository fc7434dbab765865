package rating

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cinefuse/internal/film"
	"cinefuse/internal/services"
)

// scale is the common scale every rating is projected onto.
const scale = 10

// Precedence orders providers for rating collection. When two providers
// report the same source tag, the earlier provider's value wins: regional,
// then aggregator, then primary.
var Precedence = []film.Provider{
	film.ProviderKinopoisk,
	film.ProviderOMDB,
	film.ProviderTMDB,
}

// Normalize projects a raw rating onto the common 0-10 scale. A non-positive
// scale max is a domain error; callers skip that single rating and keep the
// rest of the set.
func Normalize(raw film.RawRating) (film.NormalizedRating, error) {
	if raw.Max <= 0 {
		return film.NormalizedRating{}, fmt.Errorf("%w: rating %s has non-positive scale max %.2f", services.ErrDomain, raw.Source, raw.Max)
	}
	return film.NormalizedRating{
		RawRating:  raw,
		Normalized: raw.Value / raw.Max * scale,
	}, nil
}

// Composite computes the arithmetic mean of the normalized values, rounded
// half-up to two decimal places. An empty set yields a null decimal, never a
// zero score.
func Composite(set []film.NormalizedRating) decimal.NullDecimal {
	if len(set) == 0 {
		return decimal.NullDecimal{}
	}
	values := make([]decimal.Decimal, len(set))
	for i, nr := range set {
		values[i] = decimal.NewFromFloat(nr.Normalized)
	}
	mean := decimal.Avg(values[0], values[1:]...)
	return decimal.NullDecimal{Decimal: mean.Round(2), Valid: true}
}

// WeightedComposite computes the weight-normalized mean over the sources
// that carry a configured positive weight. Unconfigured sources are excluded
// from both the numerator and the denominator, so an unweighted source never
// dilutes the score. No configured source in the set yields a null decimal.
func WeightedComposite(set []film.NormalizedRating, weights map[string]float64) decimal.NullDecimal {
	var numerator, denominator decimal.Decimal
	for _, nr := range set {
		weight, ok := weights[string(nr.Source)]
		if !ok || weight <= 0 {
			continue
		}
		w := decimal.NewFromFloat(weight)
		numerator = numerator.Add(w.Mul(decimal.NewFromFloat(nr.Normalized)))
		denominator = denominator.Add(w)
	}
	if denominator.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: numerator.Div(denominator).Round(2), Valid: true}
}

// Merge flattens provider records into one rating set, resolving same-source
// collisions with the precedence table: the first provider to write a source
// tag keeps it.
func Merge(records []film.ProviderRecord) []film.RawRating {
	merged := make([]film.RawRating, 0, 8)
	seen := make(map[film.Source]struct{}, 8)
	for _, provider := range Precedence {
		for i := range records {
			if records[i].Provider != provider {
				continue
			}
			for _, rating := range records[i].Ratings {
				if _, dup := seen[rating.Source]; dup {
					continue
				}
				seen[rating.Source] = struct{}{}
				merged = append(merged, rating)
			}
		}
	}
	return merged
}
