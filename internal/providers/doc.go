// Package providers constructs and bundles the upstream catalog clients.
//
// Three providers feed aggregation: TMDB (primary catalog, mandatory), OMDB
// (ratings aggregator, optional), and Kinopoisk (regional catalog, optional).
// Each client owns a provider-tuned request gateway; this package adds the
// shared construction path, the Adapter contract, and live health probes.
package providers
