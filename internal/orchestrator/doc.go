// Package orchestrator drives a single prediction session from submission to
// a terminal state.
//
// A session composes the phase timer, the progress estimator, and the retry
// policy with the backend call. It issues attempts, waits out backoff delays
// and the minimum visible duration, and emits a serialized event stream that
// renderers consume. The Orchestrator keeps at most one session running:
// starting a new one retires the previous session, which then reports
// nothing further.
package orchestrator
