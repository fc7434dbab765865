// Package aggregate orchestrates one film's metadata aggregation: establish
// the primary record, resolve the film in the secondary providers, collect
// ratings under the precedence policy, and score the unified result.
//
// Each request moves through an explicit state machine recorded on its
// Snapshot, so the queue pipeline can persist progress between phases and
// resume after a restart. Only a primary fetch failure is fatal; secondary
// failures degrade the rating set and the request completes.
package aggregate
