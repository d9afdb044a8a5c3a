package orchestrator

import (
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/retry"
)

// EventType names an observable session transition.
type EventType string

const (
	EventStarted   EventType = "started"
	EventAttempt   EventType = "attempt"
	EventPhase     EventType = "phase"
	EventProgress  EventType = "progress"
	EventRetrying  EventType = "retrying"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

// Event is one emission from a session. Seq increases by one per event within
// a session.
type Event struct {
	Seq          uint64
	SessionID    string
	Type         EventType
	Time         time.Time
	Elapsed      time.Duration
	PhaseIndex   int
	PhaseMessage string
	Progress     float64
	Attempt      int
	RetryDelay   time.Duration
	Kind         retry.Kind
	Message      string
	Result       *backend.Prediction
}

// Listener receives session events. Events for one session arrive one at a
// time and in Seq order. OnEvent runs while the session is locked, so it must
// not call back into the session or start a new one.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(ev Event) { f(ev) }
