package orchestrator

import (
	"slices"
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/retry"
)

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// Outcome is the result of one attempt.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "pending"
	}
}

// Attempt records one backend call within a session.
type Attempt struct {
	Number     int
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	Kind       retry.Kind
	Error      string
}

// Duration is how long the attempt ran, or zero while pending.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID           string
	Record       demographics.Record
	State        State
	StartedAt    time.Time
	FinishedAt   time.Time
	PhaseIndex   int
	PhaseMessage string
	Progress     float64
	Attempts     []Attempt
	Result       *backend.Prediction
	ErrorKind    retry.Kind
	Message      string
}

// Elapsed is the session's run time so far, or its total once finished.
func (s Snapshot) Elapsed() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Retries counts attempts after the first.
func (s Snapshot) Retries() int {
	return max(len(s.Attempts)-1, 0)
}

func cloneAttempts(attempts []Attempt) []Attempt {
	return slices.Clone(attempts)
}

const (
	msgConnection  = "Server is starting up. Please try again in a minute."
	msgTimeout     = "Request timed out while the server was warming up."
	msgServerError = "Server error while computing the prediction."
	msgOther       = "Prediction failed."
	msgSuperseded  = "Superseded by a newer request."
	msgCancelled   = "Prediction cancelled."
)

// FailureMessage returns the text shown for a failed session when the
// backend supplied no detail of its own.
func FailureMessage(kind retry.Kind) string {
	switch kind {
	case retry.KindConnection:
		return msgConnection
	case retry.KindTimeout:
		return msgTimeout
	case retry.KindServerError:
		return msgServerError
	default:
		return msgOther
	}
}

func failureMessage(kind retry.Kind, err error) string {
	if detail := backend.UserMessage(err); detail != "" {
		return detail
	}
	return FailureMessage(kind)
}
