package logging

import "strings"

// ProgressSampler decides which item progress observations are worth a log
// line. The workflow heartbeat sees an item's progress on every tick, but the
// stored stage label and percent move far less often than the ticker fires,
// so the sampler emits only on a stage change or a percent bucket crossing.
type ProgressSampler struct {
	bucketSize float64
	lastStage  string
	lastBucket int
}

// NewProgressSampler constructs a sampler emitting on stage changes and on
// percent bucket boundaries. A non-positive bucketSize falls back to 5%.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether this progress observation should be logged.
// Percent can be negative to indicate "unknown"; the stage label is trimmed
// before comparison. A stage change resets the bucket tracking so the new
// stage's first observation always emits.
func (s *ProgressSampler) ShouldLog(percent float64, stage string) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	emit := false
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		emit = true
		s.lastBucket = -1
	}
	if percent >= 0 {
		bucket := int(percent / s.bucketSize)
		if percent >= 100 {
			bucket = int(100 / s.bucketSize)
		}
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state when a new item starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStage = ""
	s.lastBucket = -1
}
