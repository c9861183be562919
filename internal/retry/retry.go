// Package retry provides bounded retry with exponential backoff and jitter
// for the two external provider call sites (embedding, generation).
// Failures are retried until the attempt budget is exhausted, then wrapped in
// ErrExhausted so callers can distinguish a transient blip from a dead
// provider. Errors marked Permanent are never retried — a provider that
// explicitly rejects its input will reject it every time.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrExhausted wraps the final error after all retry attempts failed.
// Callers detect it with errors.Is and treat the failure as fatal for the
// current section without aborting sibling sections.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds the retry loop.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	// Defaults to 3 if zero.
	Attempts int

	// BaseDelay is the backoff base; the delay doubles each attempt with
	// ±25% jitter. Defaults to 500ms if zero.
	BaseDelay time.Duration
}

// withDefaults returns the policy with zero fields filled in.
func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	return p
}

// permanentError marks an error as not worth retrying.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it immediately without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to p.Attempts times, sleeping with exponential backoff and
// jitter between attempts. It stops early on success, on a Permanent error,
// or when ctx is done. After exhaustion the last error is wrapped in
// ErrExhausted.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(p.BaseDelay, attempt)):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts, lastErr)
}

// backoff returns the delay before the given attempt (1-based): exponential
// doubling of base, capped at 30s, with ±25% jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// Cap the shift to avoid overflow.
	if attempt > 30 {
		attempt = 30
	}
	d := base * time.Duration(1<<uint(attempt)) //nolint:gosec // attempt capped above
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2)) - d/4
	return d + jitter
}
