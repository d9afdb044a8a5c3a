// Package history keeps a local SQLite record of prediction sessions.
//
// Each session row captures the submitted record, the terminal state, and the
// prediction or failure message; attempt rows keep per-call timing and error
// classification. The database is a convenience log, not a source of truth:
// schema changes bump the version in schema.go and users clear the history to
// adopt the new schema.
package history
