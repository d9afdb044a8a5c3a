package progress_test

import (
	"testing"
	"time"

	"incomecast/internal/phase"
	"incomecast/internal/progress"
)

const total = 68 * time.Second

func TestComputeBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		index   int
		want    float64
	}{
		{"start", 0, 0, 0},
		{"elapsed equals total", total, 0, 90},
		{"elapsed beyond total", 3 * total, 0, 90},
		{"last phase", 0, 4, 90},
		{"half time", total / 2, 0, 50},
		{"second phase", 0, 1, 22.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progress.Compute(tt.elapsed, tt.index, total, 5); got != tt.want {
				t.Fatalf("Compute = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeMonotonicInElapsed(t *testing.T) {
	for index := 0; index < 5; index++ {
		prev := -1.0
		for ms := 0; ms <= 100_000; ms += 250 {
			got := progress.Compute(time.Duration(ms)*time.Millisecond, index, total, 5)
			if got < prev {
				t.Fatalf("index %d: progress regressed at %dms: %v < %v", index, ms, got, prev)
			}
			if got > progress.Cap {
				t.Fatalf("progress %v exceeds cap", got)
			}
			prev = got
		}
	}
}

func TestComputeMonotonicInPhase(t *testing.T) {
	for _, elapsed := range []time.Duration{0, time.Second, 30 * time.Second, total} {
		prev := -1.0
		for index := 0; index < 5; index++ {
			got := progress.Compute(elapsed, index, total, 5)
			if got < prev {
				t.Fatalf("elapsed %s: progress regressed at phase %d", elapsed, index)
			}
			prev = got
		}
	}
}

func TestComputeDegenerateInputs(t *testing.T) {
	if got := progress.Compute(time.Second, 0, 0, 5); got != 0 {
		t.Fatalf("zero total should ignore time signal, got %v", got)
	}
	if got := progress.Compute(0, 3, total, 1); got != 0 {
		t.Fatalf("single phase should ignore phase signal, got %v", got)
	}
	if got := progress.Compute(-time.Second, 0, total, 5); got != 0 {
		t.Fatalf("negative elapsed should clamp to 0, got %v", got)
	}
}

func TestEstimatorUsesSequence(t *testing.T) {
	est := progress.NewEstimator(phase.DefaultSequence())
	if got := est.At(total, 0); got != 90 {
		t.Fatalf("At(total) = %v, want 90", got)
	}
}

func TestTrackerNeverRegresses(t *testing.T) {
	var tr progress.Tracker
	if v, advanced := tr.Observe(10.4); v != 10.4 || !advanced {
		t.Fatalf("first observe = %v, %v", v, advanced)
	}
	if v, advanced := tr.Observe(10.9); v != 10.9 || advanced {
		t.Fatalf("same whole percent should not advance: %v, %v", v, advanced)
	}
	if v, advanced := tr.Observe(5); v != 10.9 || advanced {
		t.Fatalf("lower value must not regress: %v, %v", v, advanced)
	}
	if v, advanced := tr.Observe(11); v != 11 || !advanced {
		t.Fatalf("next whole percent should advance: %v, %v", v, advanced)
	}
}
