package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/logging"
	"incomecast/internal/phase"
	"incomecast/internal/retry"
)

const (
	DefaultMinVisible     = 2 * time.Second
	DefaultAttemptTimeout = 120 * time.Second
	DefaultTickInterval   = 250 * time.Millisecond
)

// Predictor performs one backend prediction call.
type Predictor interface {
	Predict(ctx context.Context, req backend.PredictRequest) (backend.Prediction, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Phases is the simulated stage schedule. Empty uses phase.DefaultSequence.
	Phases []phase.Phase
	// Policy decides retries. The zero value never retries.
	Policy retry.Policy
	// MinVisible is the shortest time a successful session stays running.
	MinVisible time.Duration
	// AttemptTimeout bounds each backend call.
	AttemptTimeout time.Duration
	// TickInterval is the cadence of time-based progress updates.
	TickInterval time.Duration
	Logger       *slog.Logger
	Listeners    []Listener
	// OnFinish receives the final snapshot of every session, including
	// retired ones, before Wait returns.
	OnFinish func(Snapshot)
}

// DefaultOptions returns the stock schedule, retry policy, and timings.
func DefaultOptions() Options {
	return Options{
		Phases:         phase.DefaultSequence(),
		Policy:         retry.DefaultPolicy(),
		MinVisible:     DefaultMinVisible,
		AttemptTimeout: DefaultAttemptTimeout,
		TickInterval:   DefaultTickInterval,
	}
}

// Orchestrator runs prediction sessions, at most one at a time.
type Orchestrator struct {
	predictor Predictor
	opts      Options
	logger    *slog.Logger

	startMu sync.Mutex
	mu      sync.Mutex
	current *Session
}

// New builds an Orchestrator around predictor.
func New(predictor Predictor, opts Options) *Orchestrator {
	if len(opts.Phases) == 0 {
		opts.Phases = phase.DefaultSequence()
	}
	if opts.MinVisible < 0 {
		opts.MinVisible = 0
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	return &Orchestrator{
		predictor: predictor,
		opts:      opts,
		logger:    logging.NewComponentLogger(opts.Logger, "orchestrator"),
	}
}

// Start retires any running session and begins a new one for record. The
// returned session is already running. Once Start returns, the retired
// session emits nothing further.
func (o *Orchestrator) Start(ctx context.Context, record demographics.Record) *Session {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	s := newSession(ctx, o, record)

	o.mu.Lock()
	prev := o.current
	o.current = s
	o.mu.Unlock()

	if prev != nil {
		prev.retire(msgSuperseded)
	}
	s.begin()
	return s
}

// Current returns the most recently started session, or nil.
func (o *Orchestrator) Current() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Cancel retires the current session if it is still running.
func (o *Orchestrator) Cancel() {
	if s := o.Current(); s != nil {
		s.retire(msgCancelled)
	}
}
