package retry

import (
	"fmt"
	"time"
)

const (
	DefaultMaxRetries      = 2
	DefaultFirstRetryDelay = 30 * time.Second
	DefaultRetryDelay      = 10 * time.Second
)

// Policy holds the retry budget and the fixed backoff delays. The delays are
// tuned to an observed cold-start profile rather than derived.
type Policy struct {
	MaxRetries      int
	FirstRetryDelay time.Duration
	RetryDelay      time.Duration
}

// DefaultPolicy returns the stock policy: two retries, 30s then 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      DefaultMaxRetries,
		FirstRetryDelay: DefaultFirstRetryDelay,
		RetryDelay:      DefaultRetryDelay,
	}
}

// MaxAttempts is the total number of attempts the policy allows.
func (p Policy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Decision is the outcome of Decide: either wait Delay and retry, or fail.
type Decision struct {
	Retry bool
	Delay time.Duration
}

func (d Decision) String() string {
	if d.Retry {
		return fmt.Sprintf("retry after %s", d.Delay)
	}
	return "fail"
}

// Decide applies the policy to the attempt that just failed with kind.
func (p Policy) Decide(attempt int, kind Kind) Decision {
	if !kind.Retryable() {
		return Decision{}
	}
	if attempt > p.MaxRetries {
		return Decision{}
	}
	delay := p.RetryDelay
	if attempt == 1 {
		delay = p.FirstRetryDelay
	}
	if delay < 0 {
		delay = 0
	}
	return Decision{Retry: true, Delay: delay}
}

// Decide applies the default delays with an explicit retry budget.
func Decide(attempt, maxRetries int, kind Kind) Decision {
	p := DefaultPolicy()
	p.MaxRetries = maxRetries
	return p.Decide(attempt, kind)
}
