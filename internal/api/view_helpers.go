package api

import (
	"strings"

	json "github.com/goccy/go-json"

	"cinefuse/internal/film"
)

// ParseResult decodes the unified film payload attached to a queue item.
// The second return is false when the payload is empty or malformed.
func ParseResult(resultJSON string) (*film.Unified, bool) {
	if strings.TrimSpace(resultJSON) == "" {
		return nil, false
	}
	var unified film.Unified
	if err := json.Unmarshal([]byte(resultJSON), &unified); err != nil {
		return nil, false
	}
	return &unified, true
}

// ResultComposite extracts the composite score from a result payload, fixed
// to two decimals, or empty string when absent.
func ResultComposite(resultJSON string) string {
	unified, ok := ParseResult(resultJSON)
	if !ok || !unified.Composite.Valid {
		return ""
	}
	return unified.Composite.Decimal.StringFixed(2)
}

// ResultTitle extracts the unified title from a result payload.
func ResultTitle(resultJSON, fallback string) string {
	unified, ok := ParseResult(resultJSON)
	if !ok {
		return fallback
	}
	if title := strings.TrimSpace(unified.Title); title != "" {
		return title
	}
	return fallback
}

// ResultRatingsCount reports how many rating sources the result carries.
func ResultRatingsCount(resultJSON string) int {
	unified, ok := ParseResult(resultJSON)
	if !ok {
		return 0
	}
	return unified.RatingsCount()
}
