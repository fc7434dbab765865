package rating_test

import (
	"errors"
	"math"
	"testing"

	"cinefuse/internal/film"
	"cinefuse/internal/rating"
	"cinefuse/internal/services"
)

func mustNormalize(t *testing.T, source film.Source, value, max float64) film.NormalizedRating {
	t.Helper()
	raw, err := film.NewRawRating(source, value, max, 0)
	if err != nil {
		t.Fatalf("NewRawRating returned error: %v", err)
	}
	nr, err := rating.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	return nr
}

func TestNormalizeProjectsOntoCommonScale(t *testing.T) {
	cases := []struct {
		source film.Source
		value  float64
		max    float64
		want   float64
	}{
		{film.SourceTMDB, 7.5, 10, 7.5},
		{film.SourceRottenTomatoes, 89, 100, 8.9},
		{film.SourceMetascore, 94, 100, 9.4},
		{film.SourceKinopoisk, 0, 10, 0},
	}
	for _, tc := range cases {
		nr := mustNormalize(t, tc.source, tc.value, tc.max)
		if math.Abs(nr.Normalized-tc.want) > 1e-9 {
			t.Fatalf("%s %.2f/%.0f: expected %.2f, got %v", tc.source, tc.value, tc.max, tc.want, nr.Normalized)
		}
		if nr.Normalized < 0 || nr.Normalized > 10 {
			t.Fatalf("normalized value escaped the scale: %v", nr.Normalized)
		}
	}
}

func TestNormalizeRejectsNonPositiveMax(t *testing.T) {
	_, err := rating.Normalize(film.RawRating{Source: film.SourceIMDB, Value: 5, Max: 0})
	if !errors.Is(err, services.ErrDomain) {
		t.Fatalf("expected a domain error, got %v", err)
	}
}

func TestCompositeMeanRoundsToTwoPlaces(t *testing.T) {
	set := []film.NormalizedRating{
		mustNormalize(t, film.SourceTMDB, 7.5, 10),
		mustNormalize(t, film.SourceRottenTomatoes, 89, 100),
		mustNormalize(t, film.SourceMetascore, 94, 100),
	}
	composite := rating.Composite(set)
	if !composite.Valid {
		t.Fatal("expected a valid composite")
	}
	if got := composite.Decimal.StringFixed(2); got != "8.60" {
		t.Fatalf("expected 8.60, got %s", got)
	}
}

func TestCompositeRoundsHalfUp(t *testing.T) {
	set := []film.NormalizedRating{
		mustNormalize(t, film.SourceTMDB, 7.02, 10),
		mustNormalize(t, film.SourceIMDB, 7.03, 10),
	}
	composite := rating.Composite(set)
	if got := composite.Decimal.StringFixed(2); got != "7.03" {
		t.Fatalf("expected the midpoint to round up, got %s", got)
	}
}

func TestCompositeRecomputeIsStable(t *testing.T) {
	set := []film.NormalizedRating{
		mustNormalize(t, film.SourceTMDB, 8.2, 10),
		mustNormalize(t, film.SourceIMDB, 8.8, 10),
		mustNormalize(t, film.SourceMetascore, 73, 100),
	}
	first := rating.Composite(set)
	second := rating.Composite(set)
	if first.Valid != second.Valid || !first.Decimal.Equal(second.Decimal) {
		t.Fatalf("recomputing the same set diverged: %s vs %s", first.Decimal, second.Decimal)
	}

	weights := map[string]float64{"tmdb": 0.25, "imdb": 0.25, "metascore": 0.25}
	firstWeighted := rating.WeightedComposite(set, weights)
	secondWeighted := rating.WeightedComposite(set, weights)
	if firstWeighted.Valid != secondWeighted.Valid || !firstWeighted.Decimal.Equal(secondWeighted.Decimal) {
		t.Fatalf("recomputing the weighted set diverged: %s vs %s", firstWeighted.Decimal, secondWeighted.Decimal)
	}
}

func TestCompositeEmptySetIsNull(t *testing.T) {
	if composite := rating.Composite(nil); composite.Valid {
		t.Fatalf("expected a null composite, got %s", composite.Decimal)
	}
}

func TestWeightedCompositeExcludesUnconfiguredSources(t *testing.T) {
	set := []film.NormalizedRating{
		mustNormalize(t, film.SourceTMDB, 7.5, 10),
		mustNormalize(t, film.SourceIMDB, 89, 100),
		mustNormalize(t, film.SourceMetascore, 94, 100),
	}
	weights := map[string]float64{
		"tmdb": 0.25,
		"imdb": 0.25,
	}
	weighted := rating.WeightedComposite(set, weights)
	if !weighted.Valid {
		t.Fatal("expected a valid weighted composite")
	}
	// (0.25*7.5 + 0.25*8.9) / 0.5; a diluting denominator would give 5.47.
	if got := weighted.Decimal.StringFixed(2); got != "8.20" {
		t.Fatalf("expected 8.20, got %s", got)
	}
}

func TestWeightedCompositeNullWithoutConfiguredSources(t *testing.T) {
	set := []film.NormalizedRating{
		mustNormalize(t, film.SourceCritics, 7.8, 10),
	}
	if weighted := rating.WeightedComposite(set, map[string]float64{"imdb": 1}); weighted.Valid {
		t.Fatalf("expected a null weighted composite, got %s", weighted.Decimal)
	}
}

func TestMergeAppliesProviderPrecedence(t *testing.T) {
	mustRaw := func(source film.Source, value, max float64) film.RawRating {
		t.Helper()
		raw, err := film.NewRawRating(source, value, max, 0)
		if err != nil {
			t.Fatalf("NewRawRating returned error: %v", err)
		}
		return raw
	}

	primary := film.ProviderRecord{Provider: film.ProviderTMDB, NativeID: "949", Ratings: []film.RawRating{
		mustRaw(film.SourceTMDB, 7.9, 10),
	}}
	aggregator := film.ProviderRecord{Provider: film.ProviderOMDB, NativeID: "tt0113277", Ratings: []film.RawRating{
		mustRaw(film.SourceIMDB, 8.3, 10),
		mustRaw(film.SourceMetascore, 94, 100),
	}}
	regional := film.ProviderRecord{Provider: film.ProviderKinopoisk, NativeID: "535", Ratings: []film.RawRating{
		mustRaw(film.SourceKinopoisk, 8.1, 10),
		mustRaw(film.SourceIMDB, 8.25, 10),
		mustRaw(film.SourceCritics, 7.8, 10),
	}}

	merged := rating.Merge([]film.ProviderRecord{primary, aggregator, regional})
	if len(merged) != 5 {
		t.Fatalf("expected five distinct sources, got %#v", merged)
	}
	bySource := make(map[film.Source]film.RawRating, len(merged))
	for _, raw := range merged {
		bySource[raw.Source] = raw
	}
	if got := bySource[film.SourceIMDB].Value; got != 8.25 {
		t.Fatalf("expected the regional imdb value to win, got %v", got)
	}
	if merged[0].Source != film.SourceKinopoisk {
		t.Fatalf("expected regional ratings first, got %s", merged[0].Source)
	}
}

func TestMergeEmptyRecords(t *testing.T) {
	if merged := rating.Merge(nil); len(merged) != 0 {
		t.Fatalf("expected no ratings, got %#v", merged)
	}
}
