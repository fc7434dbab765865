// Package tmdb adapts the TMDB HTTP API to the provider contract.
//
// TMDB is the primary catalog: aggregation cannot proceed without it, so the
// adapter is always constructed. Beyond search and detail lookups it exposes
// the external-ID index (IMDb cross-references) and the daily trending chart
// used by the scheduled import job.
package tmdb
