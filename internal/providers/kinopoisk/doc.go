// Package kinopoisk adapts the Kinopoisk HTTP API to the provider contract.
//
// Kinopoisk is the regional catalog: its records carry localized titles
// (nameRu first) alongside original ones, and its rating payloads bundle the
// catalog's own score with mirrored IMDb and film-critic scores. The API has
// no external-ID index, so IMDb cross-references resolve through keyword
// search with a sanitized title+year fallback.
package kinopoisk
