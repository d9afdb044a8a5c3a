package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies why an attempt failed.
type Kind int

const (
	// KindOther covers bad input, 4xx responses, and malformed bodies.
	KindOther Kind = iota
	// KindConnection means the backend could not be reached at all.
	KindConnection
	// KindTimeout means the attempt ran past its deadline.
	KindTimeout
	// KindServerError means the backend answered with a 5xx status.
	KindServerError
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindServerError:
		return "server_error"
	default:
		return "other"
	}
}

// Retryable reports whether the kind reflects a cold or overloaded backend.
func (k Kind) Retryable() bool {
	switch k {
	case KindConnection, KindTimeout, KindServerError:
		return true
	default:
		return false
	}
}

// ParseKind maps a stored kind name back to a Kind.
func ParseKind(value string) Kind {
	switch value {
	case "connection":
		return KindConnection
	case "timeout":
		return KindTimeout
	case "server_error":
		return KindServerError
	default:
		return KindOther
	}
}

// StatusCoder is implemented by errors that carry an HTTP response status.
type StatusCoder interface {
	HTTPStatus() int
}

// Classify maps an attempt error onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		if coder.HTTPStatus() >= http.StatusInternalServerError {
			return KindServerError
		}
		return KindOther
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if isConnectionError(err) {
		return KindConnection
	}
	return KindOther
}

func isConnectionError(err error) bool {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return false
}
