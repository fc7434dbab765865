package aggregate

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"cinefuse/internal/film"
	"cinefuse/internal/services"
)

// State names one phase of an aggregation request.
type State string

const (
	StateFetchingPrimary    State = "fetching_primary"
	StateResolvingSecondary State = "resolving_secondary"
	StateCollectingRatings  State = "collecting_ratings"
	StateNormalizing        State = "normalizing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Snapshot carries an aggregation's intermediate state between phases so the
// pipeline can persist it with the queue item and resume after a restart.
type Snapshot struct {
	State     State                 `json:"state"`
	Ref       film.Ref              `json:"ref"`
	Primary   *film.ProviderRecord  `json:"primary,omitempty"`
	Secondary []film.ProviderRecord `json:"secondary,omitempty"`
	Ratings   []film.RawRating      `json:"ratings,omitempty"`
	Unified   *film.Unified         `json:"unified,omitempty"`
}

// NewSnapshot starts an aggregation for the given reference.
func NewSnapshot(ref film.Ref) *Snapshot {
	return &Snapshot{State: StateFetchingPrimary, Ref: ref}
}

// Encode serializes the snapshot for storage on a queue item.
func (s *Snapshot) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a stored snapshot. An empty payload returns nil with
// no error; callers decide whether a missing snapshot is acceptable.
func DecodeSnapshot(raw string) (*Snapshot, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// AggregationError reports a fatal aggregation failure: the request cannot
// produce a unified film. Secondary provider failures never raise it; they
// degrade the rating set instead.
type AggregationError struct {
	Ref   film.Ref
	State State
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed in %s for %s: %v", e.State, e.Ref, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// Is marks every AggregationError as matching the aggregation sentinel.
func (e *AggregationError) Is(target error) bool { return target == services.ErrAggregation }
