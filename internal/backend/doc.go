// Package backend is the HTTP client for the income classification service.
//
// It owns the wire types for POST /predict, GET /health, and GET /model-info
// and turns every failure into one of three shapes the retry classifier can
// reason about: a StatusError for non-2xx responses (carrying the server's
// detail message when present), an APIError when the service answers
// success=false, and ErrMalformedResponse when a 2xx body cannot be used.
// Transport failures are returned wrapped so net and context errors remain
// visible to errors.Is / errors.As.
package backend
