package progress

import (
	"math"
	"time"

	"incomecast/internal/phase"
)

const (
	// Cap is the highest percentage shown while a session is still running.
	Cap = 90.0
	// Complete is shown once a session has a result.
	Complete = 100.0
)

// Compute blends elapsed time against the planned total with the index of the
// current phase and returns the larger of the two, clamped to [0, Cap].
func Compute(elapsed time.Duration, phaseIndex int, totalPlanned time.Duration, phaseCount int) float64 {
	var timeBased float64
	if totalPlanned > 0 {
		timeBased = math.Min(float64(elapsed)/float64(totalPlanned)*100, Cap)
	}
	var phaseBased float64
	if phaseCount > 1 {
		phaseBased = math.Min(float64(phaseIndex)/float64(phaseCount-1)*Cap, Cap)
	}
	return clamp(math.Max(timeBased, phaseBased))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > Cap:
		return Cap
	default:
		return v
	}
}

// Estimator binds Compute to a fixed phase sequence.
type Estimator struct {
	total time.Duration
	count int
}

// NewEstimator captures the planned total and phase count of phases.
func NewEstimator(phases []phase.Phase) Estimator {
	return Estimator{total: phase.TotalPlanned(phases), count: len(phases)}
}

// At returns the running percentage for the elapsed time and phase index.
func (e Estimator) At(elapsed time.Duration, phaseIndex int) float64 {
	return Compute(elapsed, phaseIndex, e.total, e.count)
}

// Tracker keeps a displayed percentage from ever moving backwards.
type Tracker struct {
	last float64
}

// Observe folds value into the tracker and returns the displayed value plus
// whether the whole-number percentage advanced.
func (t *Tracker) Observe(value float64) (float64, bool) {
	if value <= t.last {
		return t.last, false
	}
	advanced := math.Floor(value) > math.Floor(t.last)
	t.last = value
	return t.last, advanced
}

// Value returns the current displayed percentage.
func (t *Tracker) Value() float64 {
	return t.last
}
