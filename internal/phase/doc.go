// Package phase defines the simulated stage sequence shown while a prediction
// request is in flight, and the Timer that activates each stage at its planned
// offset from session start.
//
// The sequence is a heuristic: it carries no feedback from the backend and only
// exists so a cold start reads as progress instead of a frozen screen.
package phase
