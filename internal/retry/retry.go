// Package retry implements the bounded, fixed-delay retry policy shared by
// format discovery and downloads.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/iconidentify/vidgrab/internal/config"
)

// Policy holds retry configuration.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Permanent reports errors that must not be retried. Nil retries everything.
	Permanent func(error) bool
}

// DefaultPolicy returns three attempts spaced five seconds apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
	}
}

// NotifyFunc is called after a failed attempt that will be retried.
// attempt is 1-based.
type NotifyFunc func(attempt, maxAttempts int, err error, delay time.Duration)

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs fn until it succeeds, returns a permanent error, or the policy is
// exhausted. Permanent errors are returned unwrapped. The wait between
// attempts is a plain fixed delay, cut short only by ctx.
func Do[T any](ctx context.Context, p Policy, notify NotifyFunc, fn func(attempt int) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.Permanent != nil && p.Permanent(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		// Don't wait after the last attempt
		if attempt == attempts {
			break
		}

		if notify != nil {
			notify(attempt, attempts, err, p.Delay)
		}

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// FromConfig builds a policy from configuration.
func FromConfig(cfg config.RetryConfig, permanent func(error) bool) Policy {
	return Policy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.Delay,
		Permanent:   permanent,
	}
}
