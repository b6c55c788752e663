package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/seiforesti/govflow/internal/core"
)

// jitterFactor spreads concurrent retries so sibling steps do not hammer the
// same backend in lockstep.
const jitterFactor = 0.2

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// RetryNotifyFunc is called before each retry wait.
type RetryNotifyFunc func(attempt int, err error, delay time.Duration)

// Retrier executes functions under a run's retry policy.
type Retrier struct {
	policy core.RetryPolicy
}

// NewRetrier creates a retrier for the given policy.
func NewRetrier(policy core.RetryPolicy) *Retrier {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 30 * time.Second
	}
	if !policy.Backoff.IsValid() {
		policy.Backoff = core.BackoffExponential
	}
	return &Retrier{policy: policy}
}

// Execute runs fn, retrying per the policy, and returns the last error when
// all attempts fail. A disabled policy runs fn exactly once.
func (r *Retrier) Execute(ctx context.Context, fn RetryableFunc) error {
	return r.ExecuteWithNotify(ctx, fn, nil)
}

// ExecuteWithNotify runs with retries and invokes notify before each wait.
func (r *Retrier) ExecuteWithNotify(ctx context.Context, fn RetryableFunc, notify RetryNotifyFunc) error {
	attempts := 1
	if r.policy.Enabled {
		attempts = r.policy.MaxRetries + 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := r.Delay(attempt)
		if notify != nil {
			notify(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if attempts > 1 {
		return &RetryExhaustedError{Attempts: attempts, LastErr: lastErr}
	}
	return lastErr
}

// retryable decides whether an error qualifies for another attempt. An
// explicit allowlist on the policy restricts retries to matching messages;
// otherwise the domain error's own Retryable flag decides, and unclassified
// errors are retried.
func (r *Retrier) retryable(err error) bool {
	if len(r.policy.RetryableErrors) > 0 {
		msg := err.Error()
		for _, allowed := range r.policy.RetryableErrors {
			if strings.Contains(msg, allowed) {
				return true
			}
		}
		return false
	}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return true
}

// Delay computes the wait before the next attempt, with jitter.
func (r *Retrier) Delay(attempt int) time.Duration {
	var delay float64
	base := float64(r.policy.BaseDelay)

	switch r.policy.Backoff {
	case core.BackoffFixed:
		delay = base
	case core.BackoffLinear:
		delay = base * float64(attempt)
	default: // exponential
		delay = base * math.Pow(2, float64(attempt-1))
	}

	if max := float64(r.policy.MaxDelay); delay > max {
		delay = max
	}

	jitter := delay * jitterFactor
	delay += (rand.Float64()*2 - 1) * jitter
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// DelayNoJitter computes the deterministic part of the delay (for tests).
func (r *Retrier) DelayNoJitter(attempt int) time.Duration {
	var delay float64
	base := float64(r.policy.BaseDelay)
	switch r.policy.Backoff {
	case core.BackoffFixed:
		delay = base
	case core.BackoffLinear:
		delay = base * float64(attempt)
	default:
		delay = base * math.Pow(2, float64(attempt-1))
	}
	if max := float64(r.policy.MaxDelay); delay > max {
		delay = max
	}
	return time.Duration(delay)
}

// RetryExhaustedError indicates all retry attempts failed.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}
