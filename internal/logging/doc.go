// Package logging assembles structured slog loggers and formatting helpers used
// across incomecast.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator code can tag log
// lines with session IDs and attempt numbers. The ProgressSampler keeps the
// once-per-tick progress stream from flooding the log. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
