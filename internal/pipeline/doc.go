// Package pipeline implements the queue stage handlers that carry a film
// through aggregation: fetch the primary record, resolve secondary providers,
// collect ratings, score the composite, and publish to the catalog.
//
// Each handler wraps one orchestrator phase and persists the aggregation
// snapshot on the queue item afterwards, so a daemon restart resumes from the
// last completed phase instead of repeating provider calls.
package pipeline
