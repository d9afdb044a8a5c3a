package history

import (
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/orchestrator"
)

// Entry is one recorded prediction session.
type Entry struct {
	SessionID        string
	State            string
	StartedAt        time.Time
	FinishedAt       time.Time
	Prediction       string
	Confidence       float64
	ProbabilityAbove float64
	ErrorKind        string
	Message          string
	Record           demographics.Record
	BackendURL       string
	// Attempts is populated by Get; List leaves it empty.
	Attempts []Attempt
	// AttemptCount is populated by both List and Get.
	AttemptCount int
}

// Attempt is one recorded backend call.
type Attempt struct {
	Number     int
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	ErrorKind  string
	Error      string
}

// Duration is how long the session ran.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() || e.StartedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// FromSnapshot converts a finished orchestrator session into a history entry.
func FromSnapshot(snap orchestrator.Snapshot, backendURL string) Entry {
	entry := Entry{
		SessionID:    snap.ID,
		State:        snap.State.String(),
		StartedAt:    snap.StartedAt,
		FinishedAt:   snap.FinishedAt,
		Message:      snap.Message,
		Record:       snap.Record,
		BackendURL:   backendURL,
		AttemptCount: len(snap.Attempts),
	}
	if snap.State == orchestrator.StateFailed {
		entry.ErrorKind = snap.ErrorKind.String()
	}
	if snap.Result != nil {
		entry.Prediction = snap.Result.Label
		entry.Confidence = snap.Result.Confidence
		entry.ProbabilityAbove = snap.Result.Probability(backend.LabelAbove)
	}
	for _, a := range snap.Attempts {
		row := Attempt{
			Number:     a.Number,
			StartedAt:  a.StartedAt,
			FinishedAt: a.FinishedAt,
			Outcome:    a.Outcome.String(),
			Error:      a.Error,
		}
		if a.Outcome == orchestrator.OutcomeFailure {
			row.ErrorKind = a.Kind.String()
		}
		entry.Attempts = append(entry.Attempts, row)
	}
	return entry
}
