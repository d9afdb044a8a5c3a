package orchestrator_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"testing"
	"time"

	"incomecast/internal/backend"
	"incomecast/internal/demographics"
	"incomecast/internal/orchestrator"
	"incomecast/internal/phase"
	"incomecast/internal/retry"
)

type step func(ctx context.Context) (backend.Prediction, error)

type scriptedPredictor struct {
	mu    sync.Mutex
	steps []step
	calls int
}

func (p *scriptedPredictor) Predict(ctx context.Context, _ backend.PredictRequest) (backend.Prediction, error) {
	p.mu.Lock()
	i := min(p.calls, len(p.steps)-1)
	p.calls++
	fn := p.steps[i]
	p.mu.Unlock()
	return fn(ctx)
}

func (p *scriptedPredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func succeed(context.Context) (backend.Prediction, error) {
	return backend.Prediction{
		Label:         backend.LabelAbove,
		Confidence:    0.81,
		Probabilities: map[string]float64{backend.LabelAbove: 0.81, backend.LabelBelow: 0.19},
	}, nil
}

func failWith(err error) step {
	return func(context.Context) (backend.Prediction, error) { return backend.Prediction{}, err }
}

func blockUntilDone(ctx context.Context) (backend.Prediction, error) {
	<-ctx.Done()
	return backend.Prediction{}, fmt.Errorf("backend request: POST /predict: %w", ctx.Err())
}

type recorder struct {
	mu     sync.Mutex
	events []orchestrator.Event
}

func (r *recorder) OnEvent(ev orchestrator.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) Events() []orchestrator.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]orchestrator.Event(nil), r.events...)
}

func count(events []orchestrator.Event, typ orchestrator.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func testOptions(rec *recorder) orchestrator.Options {
	opts := orchestrator.DefaultOptions()
	opts.Policy = retry.Policy{MaxRetries: 2, FirstRetryDelay: 30 * time.Millisecond, RetryDelay: 10 * time.Millisecond}
	opts.TickInterval = 5 * time.Millisecond
	opts.Phases = phase.Sequence([]phase.Spec{
		{Message: "Connecting...", Planned: 20 * time.Millisecond},
		{Message: "Loading...", Planned: 20 * time.Millisecond},
		{Message: "Finalizing...", Planned: 0},
	})
	opts.Listeners = []orchestrator.Listener{rec}
	return opts
}

func waitDone(t *testing.T, s *orchestrator.Session, limit time.Duration) orchestrator.Snapshot {
	t.Helper()
	select {
	case <-s.Done():
		return s.Snapshot()
	case <-time.After(limit):
		t.Fatalf("session %s did not finish within %s (state %s)", s.ID(), limit, s.Snapshot().State)
		return orchestrator.Snapshot{}
	}
}

func assertOrderedStream(t *testing.T, events []orchestrator.Event) {
	t.Helper()
	var lastProgress float64
	lastPhase := 0
	for i, ev := range events {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		if ev.Progress < lastProgress {
			t.Fatalf("progress went backwards at seq %d: %v -> %v", ev.Seq, lastProgress, ev.Progress)
		}
		if ev.PhaseIndex < lastPhase {
			t.Fatalf("phase index went backwards at seq %d", ev.Seq)
		}
		if ev.Type != orchestrator.EventCompleted && ev.Progress > 90 {
			t.Fatalf("running progress exceeded cap at seq %d: %v", ev.Seq, ev.Progress)
		}
		lastProgress = ev.Progress
		lastPhase = ev.PhaseIndex
	}
}

func TestServerErrorsThenSuccessCompletesAfterTwoRetries(t *testing.T) {
	rec := &recorder{}
	unavailable := &backend.StatusError{StatusCode: http.StatusServiceUnavailable}
	p := &scriptedPredictor{steps: []step{failWith(unavailable), failWith(unavailable), succeed}}
	o := orchestrator.New(p, testOptions(rec))

	s := o.Start(context.Background(), demographics.Default())
	snap := waitDone(t, s, 5*time.Second)

	if snap.State != orchestrator.StateCompleted {
		t.Fatalf("expected completed, got %s (%s)", snap.State, snap.Message)
	}
	if len(snap.Attempts) != 3 || snap.Retries() != 2 || p.Calls() != 3 {
		t.Fatalf("expected 3 attempts, got %d (calls %d)", len(snap.Attempts), p.Calls())
	}
	for i, a := range snap.Attempts[:2] {
		if a.Outcome != orchestrator.OutcomeFailure || a.Kind != retry.KindServerError {
			t.Fatalf("attempt %d: unexpected %+v", i+1, a)
		}
	}
	if snap.Attempts[2].Outcome != orchestrator.OutcomeSuccess {
		t.Fatalf("final attempt not successful: %+v", snap.Attempts[2])
	}
	if snap.Elapsed() < 2*time.Second {
		t.Fatalf("completed before the minimum visible duration: %s", snap.Elapsed())
	}
	if snap.Progress != 100 || snap.Result == nil || snap.Result.Label != backend.LabelAbove {
		t.Fatalf("unexpected final snapshot %+v", snap)
	}

	events := rec.Events()
	assertOrderedStream(t, events)
	if got := count(events, orchestrator.EventRetrying); got != 2 {
		t.Fatalf("expected 2 retrying events, got %d", got)
	}
	var delays []time.Duration
	for _, ev := range events {
		if ev.Type == orchestrator.EventRetrying {
			delays = append(delays, ev.RetryDelay)
		}
	}
	if delays[0] != 30*time.Millisecond || delays[1] != 10*time.Millisecond {
		t.Fatalf("unexpected retry delays %v", delays)
	}
	last := events[len(events)-1]
	if last.Type != orchestrator.EventCompleted || last.Progress != 100 {
		t.Fatalf("expected completed as last event, got %+v", last)
	}
	if count(events, orchestrator.EventAttempt) != 3 {
		t.Fatalf("expected 3 attempt events")
	}
}

func TestOtherFailureFailsImmediately(t *testing.T) {
	rec := &recorder{}
	invalid := &backend.StatusError{StatusCode: http.StatusUnprocessableEntity, Detail: "age: value out of range"}
	p := &scriptedPredictor{steps: []step{failWith(invalid), succeed}}
	o := orchestrator.New(p, testOptions(rec))

	start := time.Now()
	snap := waitDone(t, o.Start(context.Background(), demographics.Default()), 2*time.Second)

	if snap.State != orchestrator.StateFailed || snap.ErrorKind != retry.KindOther {
		t.Fatalf("expected failed/other, got %s/%s", snap.State, snap.ErrorKind)
	}
	if p.Calls() != 1 || len(snap.Attempts) != 1 {
		t.Fatalf("expected a single attempt, got %d", p.Calls())
	}
	if snap.Message != "age: value out of range" {
		t.Fatalf("expected server detail as message, got %q", snap.Message)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("failure was delayed: %s", time.Since(start))
	}
	events := rec.Events()
	if count(events, orchestrator.EventRetrying) != 0 {
		t.Fatal("unexpected retry for non-retryable failure")
	}
	if events[len(events)-1].Type != orchestrator.EventFailed {
		t.Fatalf("expected failed as last event, got %s", events[len(events)-1].Type)
	}
	assertOrderedStream(t, events)
}

func TestRetryBudgetExhaustedUsesFallbackMessage(t *testing.T) {
	rec := &recorder{}
	opts := testOptions(rec)
	opts.Policy.MaxRetries = 1
	refused := fmt.Errorf("backend request: POST /predict: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})
	p := &scriptedPredictor{steps: []step{failWith(refused)}}
	o := orchestrator.New(p, opts)

	snap := waitDone(t, o.Start(context.Background(), demographics.Default()), 2*time.Second)
	if snap.State != orchestrator.StateFailed || snap.ErrorKind != retry.KindConnection {
		t.Fatalf("expected failed/connection, got %s/%s", snap.State, snap.ErrorKind)
	}
	if len(snap.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(snap.Attempts))
	}
	if snap.Message != "Server is starting up. Please try again in a minute." {
		t.Fatalf("unexpected message %q", snap.Message)
	}
}

func TestAttemptTimeoutClassifiedAsTimeout(t *testing.T) {
	rec := &recorder{}
	opts := testOptions(rec)
	opts.Policy.MaxRetries = 0
	opts.AttemptTimeout = 30 * time.Millisecond
	p := &scriptedPredictor{steps: []step{blockUntilDone}}
	o := orchestrator.New(p, opts)

	snap := waitDone(t, o.Start(context.Background(), demographics.Default()), 2*time.Second)
	if snap.State != orchestrator.StateFailed || snap.ErrorKind != retry.KindTimeout {
		t.Fatalf("expected failed/timeout, got %s/%s", snap.State, snap.ErrorKind)
	}
	if snap.Message != "Request timed out while the server was warming up." {
		t.Fatalf("unexpected message %q", snap.Message)
	}
}

func TestSecondStartRetiresRunningSession(t *testing.T) {
	rec := &recorder{}
	opts := testOptions(rec)
	opts.MinVisible = 50 * time.Millisecond

	var finishedMu sync.Mutex
	finished := map[string]orchestrator.State{}
	opts.OnFinish = func(s orchestrator.Snapshot) {
		finishedMu.Lock()
		defer finishedMu.Unlock()
		finished[s.ID] = s.State
	}

	inFlight := make(chan struct{})
	released := make(chan struct{})
	first := func(ctx context.Context) (backend.Prediction, error) {
		close(inFlight)
		<-ctx.Done()
		close(released)
		return backend.Prediction{}, ctx.Err()
	}
	p := &scriptedPredictor{steps: []step{first, succeed}}
	o := orchestrator.New(p, opts)

	s1 := o.Start(context.Background(), demographics.Default())
	select {
	case <-inFlight:
	case <-time.After(time.Second):
		t.Fatal("first attempt never started")
	}

	other := demographics.Default()
	other.Age = 29
	s2 := o.Start(context.Background(), other)
	mark := len(rec.Events())

	snap2 := waitDone(t, s2, 3*time.Second)
	snap1 := waitDone(t, s1, time.Second)

	for _, ev := range rec.Events()[mark:] {
		if ev.SessionID != s2.ID() {
			t.Fatalf("observed %s event from retired session after second start", ev.Type)
		}
	}
	if snap1.State != orchestrator.StateCancelled || snap1.Message != "Superseded by a newer request." {
		t.Fatalf("unexpected retired snapshot %s %q", snap1.State, snap1.Message)
	}
	if snap2.State != orchestrator.StateCompleted || snap2.Record.Age != 29 {
		t.Fatalf("unexpected second snapshot %+v", snap2)
	}
	if snap2.Attempts[0].Number != 1 {
		t.Fatalf("second session should begin at attempt 1")
	}
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("retired session's in-flight attempt was not abandoned")
	}
	if o.Current() != s2 {
		t.Fatal("current session should be the second one")
	}

	finishedMu.Lock()
	defer finishedMu.Unlock()
	if finished[s1.ID()] != orchestrator.StateCancelled || finished[s2.ID()] != orchestrator.StateCompleted {
		t.Fatalf("unexpected finish records %v", finished)
	}
}

func TestImmediateSuccessHonoursMinimumVisibleDuration(t *testing.T) {
	rec := &recorder{}
	opts := testOptions(rec)
	opts.MinVisible = orchestrator.DefaultMinVisible
	p := &scriptedPredictor{steps: []step{succeed}}
	o := orchestrator.New(p, opts)

	s := o.Start(context.Background(), demographics.Default())
	time.Sleep(time.Second)
	mid := s.Snapshot()
	if mid.State != orchestrator.StateRunning {
		t.Fatalf("expected running before the floor, got %s", mid.State)
	}
	if mid.Progress >= 100 {
		t.Fatalf("progress reached 100 before completion: %v", mid.Progress)
	}

	snap := waitDone(t, s, 3*time.Second)
	if snap.State != orchestrator.StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	events := rec.Events()
	assertOrderedStream(t, events)
	var phases []int
	for _, ev := range events {
		switch ev.Type {
		case orchestrator.EventPhase:
			phases = append(phases, ev.PhaseIndex)
		case orchestrator.EventCompleted:
			if ev.Elapsed < 2*time.Second {
				t.Fatalf("completed observed after %s", ev.Elapsed)
			}
		}
	}
	if fmt.Sprint(phases) != "[0 1 2]" {
		t.Fatalf("unexpected phase activations %v", phases)
	}
	if events[len(events)-1].Type != orchestrator.EventCompleted {
		t.Fatal("events observed after completion")
	}
}

func TestCallerCancellationEndsSessionQuietly(t *testing.T) {
	rec := &recorder{}
	p := &scriptedPredictor{steps: []step{blockUntilDone}}
	o := orchestrator.New(p, testOptions(rec))

	ctx, cancel := context.WithCancel(context.Background())
	s := o.Start(ctx, demographics.Default())
	time.Sleep(20 * time.Millisecond)
	cancel()

	snap := waitDone(t, s, time.Second)
	if snap.State != orchestrator.StateCancelled {
		t.Fatalf("expected cancelled, got %s", snap.State)
	}
	events := rec.Events()
	if count(events, orchestrator.EventFailed)+count(events, orchestrator.EventCompleted) != 0 {
		t.Fatal("cancelled session emitted a terminal event")
	}
}

func TestOrchestratorCancel(t *testing.T) {
	rec := &recorder{}
	p := &scriptedPredictor{steps: []step{blockUntilDone}}
	o := orchestrator.New(p, testOptions(rec))

	s := o.Start(context.Background(), demographics.Default())
	o.Cancel()
	snap := waitDone(t, s, time.Second)
	if snap.State != orchestrator.StateCancelled || snap.Message != "Prediction cancelled." {
		t.Fatalf("unexpected snapshot %s %q", snap.State, snap.Message)
	}
	n := len(rec.Events())
	time.Sleep(60 * time.Millisecond)
	if len(rec.Events()) != n {
		t.Fatal("events observed after cancellation")
	}
}

func TestFailureMessageFallbacks(t *testing.T) {
	cases := map[retry.Kind]string{
		retry.KindConnection:  "Server is starting up. Please try again in a minute.",
		retry.KindTimeout:     "Request timed out while the server was warming up.",
		retry.KindServerError: "Server error while computing the prediction.",
		retry.KindOther:       "Prediction failed.",
	}
	for kind, want := range cases {
		if got := orchestrator.FailureMessage(kind); got != want {
			t.Fatalf("FailureMessage(%s) = %q, want %q", kind, got, want)
		}
	}
}
