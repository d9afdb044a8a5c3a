// Package notifications pushes prediction outcomes to ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Completed and failed sessions can be
// toggled independently.
package notifications
