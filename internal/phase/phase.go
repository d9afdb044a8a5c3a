package phase

import (
	"strings"
	"time"
)

// Phase is one named stage of the simulated progress sequence.
type Phase struct {
	Index   int
	Message string
	Planned time.Duration
}

// Spec describes a phase before it is indexed into a sequence.
type Spec struct {
	Message string
	Planned time.Duration
}

var defaultSpecs = []Spec{
	{Message: "Connecting to server...", Planned: 5 * time.Second},
	{Message: "Server is starting up (this can take up to a minute)...", Planned: 40 * time.Second},
	{Message: "Loading prediction model...", Planned: 15 * time.Second},
	{Message: "Preparing prediction...", Planned: 8 * time.Second},
	{Message: "Finalizing results...", Planned: 0},
}

// DefaultSequence returns the stock phase sequence tuned to a cold backend.
func DefaultSequence() []Phase {
	return Sequence(defaultSpecs)
}

// DefaultSpecs returns a copy of the stock phase definitions.
func DefaultSpecs() []Spec {
	out := make([]Spec, len(defaultSpecs))
	copy(out, defaultSpecs)
	return out
}

// Sequence indexes specs in order. Negative durations are treated as zero and
// blank messages fall back to a generic label.
func Sequence(specs []Spec) []Phase {
	phases := make([]Phase, 0, len(specs))
	for i, spec := range specs {
		msg := strings.TrimSpace(spec.Message)
		if msg == "" {
			msg = "Working..."
		}
		planned := spec.Planned
		if planned < 0 {
			planned = 0
		}
		phases = append(phases, Phase{Index: i, Message: msg, Planned: planned})
	}
	return phases
}

// TotalPlanned sums the planned durations of every phase.
func TotalPlanned(phases []Phase) time.Duration {
	var total time.Duration
	for _, p := range phases {
		total += p.Planned
	}
	return total
}

// Offsets returns the activation offset of each phase: the cumulative planned
// duration of all phases before it.
func Offsets(phases []Phase) []time.Duration {
	offsets := make([]time.Duration, len(phases))
	var elapsed time.Duration
	for i, p := range phases {
		offsets[i] = elapsed
		elapsed += p.Planned
	}
	return offsets
}
