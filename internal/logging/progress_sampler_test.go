package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 10},
		{"default bucket size for negative", -1, 10},
		{"custom bucket size", 5, 5},
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

func TestProgressSampler_NilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "Connecting") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSampler_PhaseChange(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "Connecting to server...") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "Connecting to server...") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "Loading prediction model...") {
		t.Error("different phase should log")
	}
	if s.lastPhase != "Loading prediction model..." {
		t.Errorf("lastPhase = %q", s.lastPhase)
	}
}

func TestProgressSampler_TrimsPhase(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(0, "  Preparing  ")
	if s.lastPhase != "Preparing" {
		t.Errorf("lastPhase = %q, want Preparing (trimmed)", s.lastPhase)
	}
}

func TestProgressSampler_PercentBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	if !s.ShouldLog(0, "p") {
		t.Error("0% should log")
	}
	if s.ShouldLog(7, "p") {
		t.Error("7% should not log (same bucket)")
	}
	if !s.ShouldLog(10, "p") {
		t.Error("10% should log (new bucket)")
	}
	if s.ShouldLog(19.9, "p") {
		t.Error("19.9% should not log (same bucket)")
	}
	if !s.ShouldLog(90, "p") {
		t.Error("90% should log")
	}
}

func TestProgressSampler_NegativePercent(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog(-1, "Unknown") {
		t.Error("first call should log even with negative percent")
	}
	if s.ShouldLog(-1, "Unknown") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSampler_Caps100Percent(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(95, "p")
	if !s.ShouldLog(100, "p") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "p") {
		t.Error("105% should not log again (same as 100% bucket)")
	}
}

func TestProgressSampler_Reset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50, "Finalizing")
	s.Reset()

	if s.lastPhase != "" {
		t.Errorf("lastPhase = %q, want empty after reset", s.lastPhase)
	}
	if s.lastBucket != -1 {
		t.Errorf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50, "Finalizing") {
		t.Error("should log after reset")
	}
}
