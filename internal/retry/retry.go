// Package retry re-invokes fallible units of work a bounded number of times.
package retry

import (
	"context"
	"errors"
	"time"

	"golang.beyond.io/tdi-ingest/internal/core"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Retrier runs an operation up to Attempts times, waiting Policy.Delay between attempts.
type Retrier struct {
	attempts int
	policy   Policy
	wait     func(ctx context.Context, d time.Duration) error
	onRetry  func(attempt int, delay time.Duration, err error)
}

type Option func(*Retrier)

// WithWait replaces the function used to wait between attempts.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) {
		r.wait = wait
	}
}

// WithOnRetry registers a callback invoked after a failed attempt, before waiting.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New returns a Retrier. attempts below 1 fall back to DefaultAttempts and a nil policy
// to a fixed DefaultDelay.
func New(attempts int, policy Policy, opts ...Option) *Retrier {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if policy == nil {
		policy = FixedDelay{Interval: DefaultDelay}
	}

	r := &Retrier{
		attempts: attempts,
		policy:   policy,
		wait:     core.ApplyDelay,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Retrier) Attempts() int {
	return r.attempts
}

func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds or the retrier runs out of attempts.
//
// Returns:
//   - The result of the first successful attempt.
//   - The number of attempts made.
//   - The error of the last attempt, unchanged, when all attempts failed. When ctx is
//     cancelled while waiting, the context error joined with the last error.
func Do[T any](ctx context.Context, r *Retrier, op func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}

		delay := r.policy.Delay(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, delay, err)
		}

		if werr := r.wait(ctx, delay); werr != nil {
			return zero, attempt, errors.Join(werr, lastErr)
		}
	}

	return zero, r.attempts, lastErr
}
