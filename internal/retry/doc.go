// Package retry classifies failed prediction attempts and decides whether a
// further attempt is worth making.
//
// Connection failures, timeouts, and 5xx responses are treated as symptoms of
// a backend that is still warming up and are retried with fixed delays. Every
// other failure is final on the first attempt and consumes no retry budget.
package retry
