// Package retry wraps a single remote call in a bounded retry loop.
//
// A Policy is shared by every scrape and mutate call site. Attempts are
// separated by a fixed delay, optionally doubled per attempt up to MaxDelay.
// Sleeps honour context cancellation.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultDelay       = 4 * time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy configures a retry loop. The zero value performs a single attempt.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// MaxDelay caps the exponential delay when Backoff is set.
	MaxDelay time.Duration
	Backoff  bool
	// Retryable filters errors worth another attempt. Nil retries everything
	// except context cancellation.
	Retryable func(error) bool
	// OnRetry observes each failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
	Sleep   Sleeper
}

// Default returns the three attempts, four second policy.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err came from a policy that ran out of attempts.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	_, err := Value(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := p.attempts()
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !p.shouldRetry(ctx, err) {
			return zero, err
		}
		if attempt == attempts {
			break
		}
		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, &ExhaustedError{Op: op, Attempts: attempts, Err: lastErr}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return true
}

func (p Policy) delay(attempt int) time.Duration {
	delay := max(p.Delay, 0)
	if !p.Backoff {
		return delay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepWithContext(ctx, d)
}

// SleepWithContext blocks for d, returning early if ctx is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
