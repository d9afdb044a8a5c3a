// Package services defines shared utilities consumed by the orchestrator, the
// backend integration, and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, attempt numbers, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent CLI exit codes.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the client.
package services
