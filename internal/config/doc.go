// Package config loads, normalizes, and validates incomecast configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// INCOMECAST_BACKEND_URL and BACKEND_URL. Helper methods translate the
// file-level units (milliseconds, seconds) into the retry policy, phase
// schedule, and durations the orchestrator consumes.
package config
