package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/logging"
	"incomecast/internal/phase"
	"incomecast/internal/progress"
	"incomecast/internal/retry"
	"incomecast/internal/services"
)

// Session is one prediction run.
type Session struct {
	id        string
	record    demographics.Record
	request   backend.PredictRequest
	predictor Predictor
	opts      Options
	logger    *slog.Logger
	estimator progress.Estimator
	timer     *phase.Timer
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	mu         sync.Mutex
	state      State
	startedAt  time.Time
	finishedAt time.Time
	phaseIndex int
	phaseSeen  int
	attempts   []Attempt
	tracker    progress.Tracker
	sampler    *logging.ProgressSampler
	result     *backend.Prediction
	kind       retry.Kind
	message    string
	seq        uint64
}

func newSession(parent context.Context, o *Orchestrator, record demographics.Record) *Session {
	if parent == nil {
		parent = context.Background()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(services.WithSessionID(parent, id))
	return &Session{
		id:        id,
		record:    record,
		request:   record.Request(),
		predictor: o.predictor,
		opts:      o.opts,
		logger:    logging.WithContext(ctx, o.logger),
		estimator: progress.NewEstimator(o.opts.Phases),
		timer:     phase.NewTimer(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		phaseSeen: -1,
		sampler:   logging.NewProgressSampler(10),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session is terminal and its OnFinish hook has run.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session finishes and returns its final snapshot.
func (s *Session) Wait() Snapshot {
	<-s.done
	return s.Snapshot()
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		Record:       s.record,
		State:        s.state,
		StartedAt:    s.startedAt,
		FinishedAt:   s.finishedAt,
		PhaseIndex:   s.phaseIndex,
		PhaseMessage: s.phaseMessage(),
		Progress:     s.tracker.Value(),
		Attempts:     cloneAttempts(s.attempts),
		ErrorKind:    s.kind,
		Message:      s.message,
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

func (s *Session) phaseMessage() string {
	if s.phaseIndex >= 0 && s.phaseIndex < len(s.opts.Phases) {
		return s.opts.Phases[s.phaseIndex].Message
	}
	return ""
}

func (s *Session) begin() {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	s.state = StateRunning
	s.startedAt = now
	s.attempts = []Attempt{{Number: 1, StartedAt: now}}
	s.logger.Info("prediction session started",
		logging.Int("phases", len(s.opts.Phases)),
		logging.Int("max_attempts", s.opts.Policy.MaxAttempts()),
		logging.Duration("min_visible", s.opts.MinVisible),
	)
	s.emitLocked(Event{Type: EventStarted})
	s.emitLocked(Event{Type: EventAttempt, Attempt: 1})
	s.mu.Unlock()

	// Phase callbacks take s.mu while the timer holds its own lock, so the
	// timer is only ever touched with s.mu released.
	s.timer.Start(s.opts.Phases, s.onPhase)
	go s.tick()
	go s.run()
}

func (s *Session) run() {
	defer s.finish()

	for attempt := 1; ; attempt++ {
		if attempt > 1 && !s.startAttempt(attempt) {
			return
		}
		result, err := s.call(attempt)
		if s.ctx.Err() != nil {
			s.retire(msgCancelled)
			return
		}
		if err == nil {
			s.settleAttempt(attempt, OutcomeSuccess, retry.KindOther, nil)
			if wait := s.opts.MinVisible - s.elapsed(); wait > 0 && !sleep(s.ctx, wait) {
				s.retire(msgCancelled)
				return
			}
			s.complete(result)
			return
		}

		kind := retry.Classify(err)
		s.settleAttempt(attempt, OutcomeFailure, kind, err)
		decision := s.opts.Policy.Decide(attempt, kind)
		if !decision.Retry {
			s.fail(kind, err)
			return
		}
		s.retrying(attempt, decision.Delay, kind, err)
		if !sleep(s.ctx, decision.Delay) {
			s.retire(msgCancelled)
			return
		}
	}
}

func (s *Session) call(attempt int) (backend.Prediction, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.AttemptTimeout)
	defer cancel()
	ctx = services.WithAttempt(ctx, attempt)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	if s.predictor == nil {
		return backend.Prediction{}, errors.New("orchestrator: no predictor configured")
	}
	return s.predictor.Predict(ctx, s.request)
}

func (s *Session) startAttempt(attempt int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return false
	}
	s.attempts = append(s.attempts, Attempt{Number: attempt, StartedAt: time.Now()})
	s.logger.Info("attempt started", logging.Int(logging.FieldAttempt, attempt))
	s.emitLocked(Event{Type: EventAttempt, Attempt: attempt})
	return true
}

func (s *Session) settleAttempt(attempt int, outcome Outcome, kind retry.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt < 1 || attempt > len(s.attempts) {
		return
	}
	a := &s.attempts[attempt-1]
	a.FinishedAt = time.Now()
	a.Outcome = outcome
	if outcome == OutcomeFailure {
		a.Kind = kind
		if err != nil {
			a.Error = err.Error()
		}
		s.logger.Warn("attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.String(logging.FieldErrorKind, kind.String()),
			logging.Duration("duration", a.Duration()),
			logging.Error(err),
		)
	}
}

func (s *Session) retrying(attempt int, delay time.Duration, kind retry.Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return
	}
	logging.WarnWithContext(s.logger, "retry scheduled", "retry_scheduled",
		logging.Int(logging.FieldAttempt, attempt),
		logging.String(logging.FieldErrorKind, kind.String()),
		logging.Duration("delay", delay),
		logging.String(logging.FieldErrorHint, "backend may still be starting"),
	)
	s.emitLocked(Event{
		Type:       EventRetrying,
		Attempt:    attempt,
		RetryDelay: delay,
		Kind:       kind,
		Message:    retryMessage(kind, err),
	})
}

func retryMessage(kind retry.Kind, err error) string {
	if kind == retry.KindConnection || kind == retry.KindTimeout {
		return "Server is waking up, retrying..."
	}
	if detail := backend.UserMessage(err); detail != "" {
		return "Retrying after server error: " + detail
	}
	return "Retrying after server error..."
}

func (s *Session) complete(result backend.Prediction) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateCompleted
	s.finishedAt = time.Now()
	s.result = &result
	s.tracker.Observe(progress.Complete)
	s.logger.Info("prediction completed",
		logging.String("prediction", result.Label),
		logging.Float64("confidence", result.Confidence),
		logging.Int("attempts", len(s.attempts)),
		logging.Duration("elapsed", s.finishedAt.Sub(s.startedAt)),
	)
	res := result
	s.emitTerminalLocked(Event{Type: EventCompleted, Result: &res})
	s.mu.Unlock()
	s.timer.Cancel()
}

func (s *Session) fail(kind retry.Kind, err error) {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.finishedAt = time.Now()
	s.kind = kind
	s.message = failureMessage(kind, err)
	logging.ErrorWithContext(s.logger, "prediction failed", "prediction_failed",
		logging.String(logging.FieldErrorKind, kind.String()),
		logging.Int("attempts", len(s.attempts)),
		logging.String("message", s.message),
		logging.Error(err),
	)
	s.emitTerminalLocked(Event{Type: EventFailed, Kind: kind, Message: s.message})
	s.mu.Unlock()
	s.timer.Cancel()
}

// retire moves a live session to Cancelled, either because a newer session
// replaced it or because its context ended. Emissions check the state under
// s.mu, so nothing is observable from this session once retire returns.
func (s *Session) retire(reason string) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = StateCancelled
		s.finishedAt = time.Now()
		s.message = reason
		s.logger.Info("prediction session retired", logging.String("reason", reason))
	}
	s.mu.Unlock()
	s.timer.Cancel()
	s.cancel()
}

func (s *Session) finish() {
	s.cancel()
	if s.opts.OnFinish != nil {
		s.opts.OnFinish(s.Snapshot())
	}
	close(s.done)
}

func (s *Session) onPhase(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning || index <= s.phaseSeen {
		return
	}
	s.phaseSeen = index
	if index > s.phaseIndex {
		s.phaseIndex = index
	}
	s.logger.Info("phase advanced",
		logging.Int(logging.FieldPhaseIndex, s.phaseIndex),
		logging.String(logging.FieldPhase, s.phaseMessage()),
	)
	s.observeProgressLocked()
	s.emitLocked(Event{Type: EventPhase})
}

func (s *Session) tick() {
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateRunning {
				s.mu.Unlock()
				return
			}
			if s.observeProgressLocked() {
				s.emitLocked(Event{Type: EventProgress})
			}
			s.mu.Unlock()
		}
	}
}

func (s *Session) observeProgressLocked() bool {
	value, advanced := s.tracker.Observe(s.estimator.At(time.Since(s.startedAt), s.phaseIndex))
	if advanced && s.sampler.ShouldLog(value, s.phaseMessage()) {
		s.logger.Debug("progress", logging.Float64(logging.FieldProgress, value))
	}
	return advanced
}

func (s *Session) elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.startedAt)
}

func (s *Session) emitLocked(ev Event) {
	if s.state != StateRunning {
		return
	}
	s.deliverLocked(ev)
}

func (s *Session) emitTerminalLocked(ev Event) {
	s.deliverLocked(ev)
}

func (s *Session) deliverLocked(ev Event) {
	s.seq++
	ev.Seq = s.seq
	ev.SessionID = s.id
	ev.Time = time.Now()
	ev.Elapsed = ev.Time.Sub(s.startedAt)
	ev.PhaseIndex = s.phaseIndex
	ev.PhaseMessage = s.phaseMessage()
	ev.Progress = s.tracker.Value()
	for _, l := range s.opts.Listeners {
		if l != nil {
			l.OnEvent(ev)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
