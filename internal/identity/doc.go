// Package identity resolves film references across provider identifier
// spaces. Resolution is a fixed chain per provider, strongest signal first:
// cross-reference IDs, then known native IDs, then validated title search,
// then a sanitized-title fallback reserved for the regional catalog. A miss
// is a resolution outcome, never an error.
package identity
