package stage

import (
	"cinefuse/internal/aggregate"
	"cinefuse/internal/services"
)

// ParseSnapshot decodes the aggregation snapshot stored on a queue item. A
// blank payload yields a nil snapshot with no error. On malformed input it
// returns a services.ErrValidation suitable for stage Execute methods.
func ParseSnapshot(raw string) (*aggregate.Snapshot, error) {
	snap, err := aggregate.DecodeSnapshot(raw)
	if err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "stage", "parse snapshot",
			"Aggregation snapshot missing or invalid; rerun the fetch stage", err)
	}
	return snap, nil
}
