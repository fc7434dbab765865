package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "stage") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset() // should not panic
}

func TestProgressSamplerStageChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "Fetching metadata") {
		t.Error("first stage should log")
	}
	if s.ShouldLog(0, "Fetching metadata") {
		t.Error("same stage and percent should not log again")
	}
	if !s.ShouldLog(0, "Collecting ratings") {
		t.Error("different stage should log")
	}
	if s.lastStage != "Collecting ratings" {
		t.Errorf("lastStage = %q, want Collecting ratings", s.lastStage)
	}
}

func TestProgressSamplerTrimsStage(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(0, "  Fetching metadata  ")
	if s.lastStage != "Fetching metadata" {
		t.Errorf("lastStage = %q, want Fetching metadata (trimmed)", s.lastStage)
	}
}

func TestProgressSamplerPercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "Collecting ratings") {
		t.Error("0% should log")
	}
	if s.ShouldLog(3, "Collecting ratings") {
		t.Error("3% should not log (same bucket)")
	}
	if !s.ShouldLog(5, "Collecting ratings") {
		t.Error("5% should log (new bucket)")
	}
	if s.ShouldLog(7, "Collecting ratings") {
		t.Error("7% should not log (same bucket)")
	}
	if !s.ShouldLog(10, "Collecting ratings") {
		t.Error("10% should log (new bucket)")
	}
}

func TestProgressSamplerNegativePercent(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(-1, "Resolving identifiers") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "Resolving identifiers") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSamplerCaps100Percent(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(95, "Scoring")

	if !s.ShouldLog(100, "Scoring") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "Scoring") {
		t.Error("105% should not log again (same as 100% bucket)")
	}
}

func TestProgressSamplerBucketResetOnStageChange(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(50, "Fetching metadata")
	s.ShouldLog(0, "Collecting ratings")

	if !s.ShouldLog(10, "Collecting ratings") {
		t.Error("10% should log after stage change reset bucket")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "Fetching metadata")

	s.Reset()

	if s.lastStage != "" {
		t.Errorf("lastStage = %q, want empty after reset", s.lastStage)
	}
	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50, "Fetching metadata") {
		t.Error("should log after reset")
	}
}
