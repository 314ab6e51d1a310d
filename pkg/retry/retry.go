// Package retry runs an operation a bounded number of times with a delay between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// BaseDelay feeds the default linear delay: BaseDelay * attempt.
	BaseDelay time.Duration
	// Delay overrides the linear delay when set. attempt is the 1-based attempt that just failed.
	Delay func(attempt int) time.Duration
	// AttemptTimeout bounds each individual try. Zero disables the per-attempt deadline.
	AttemptTimeout time.Duration
	// OnRetry is invoked after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
	// Sleep waits between attempts; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError reports that every attempt failed. Only the last failure is kept.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Linear returns the base*attempt delay function.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

func (p Policy) normalize() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Delay == nil {
		p.Delay = Linear(p.BaseDelay)
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	return p
}

// Do runs op until it succeeds or the policy is exhausted.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p := policy.normalize()
	var zero T
	var lastErr error

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := runAttempt(ctx, p.AttemptTimeout, op)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if attempt == p.Attempts {
			break
		}
		wait := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := p.Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: p.Attempts, Err: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	value, err := op(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return value, fmt.Errorf("attempt timed out after %s: %w", timeout, err)
	}
	return value, err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
