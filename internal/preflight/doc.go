// Package preflight provides readiness checks for the directories, cache
// backend, and metadata providers cinefuse depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure before the
//     workflow begins polling, so a dead provider or unwritable data
//     directory is visible immediately instead of as a burst of failed items.
//   - The CLI status command uses ProviderStatuses to render the full
//     provider table, disabled rows included.
//
// Disabled providers are skipped in RunAll; the primary provider is always
// probed because aggregation cannot start without it.
package preflight
