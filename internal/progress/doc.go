// Package progress estimates a completion percentage for a prediction request
// that reports no real progress of its own.
package progress
