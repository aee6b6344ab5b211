package retry

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrExhausted is returned (wrapped together with the last failure) when
// every permitted attempt failed
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how often and how patiently an operation is retried
type Policy struct {
	// MaxAttempts bounds the number of calls; zero or negative means unbounded
	MaxAttempts int
	// Delay is the fixed pause between attempts; zero only yields
	Delay time.Duration
	// Wait replaces the default pause, mainly for tests
	Wait func(ctx context.Context, d time.Duration) error
}

// Bounded returns a policy of n attempts with no delay between them
func Bounded(n int) Policy {
	return Policy{MaxAttempts: n}
}

// Forever returns an unbounded policy with a fixed delay between attempts
func Forever(delay time.Duration) Policy {
	return Policy{Delay: delay}
}

// Do calls op until it succeeds, the policy is exhausted or ctx ends.
// op receives the 1-based attempt number. The number of attempts made is
// returned in every case.
func Do[T any](ctx context.Context, p Policy, op func(attempt int) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	wait := p.Wait
	if wait == nil {
		wait = pause
	}

	attempt := 0
	for p.MaxAttempts <= 0 || attempt < p.MaxAttempts {
		attempt++

		result, err := op(attempt)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			break
		}
		if err := wait(ctx, p.Delay); err != nil {
			return zero, attempt, fmt.Errorf("retry cancelled after %d attempt(s): %w", attempt, err)
		}
	}

	if lastErr == nil {
		return zero, attempt, ErrExhausted
	}
	return zero, attempt, fmt.Errorf("%w after %d attempt(s): %w", ErrExhausted, attempt, lastErr)
}

// pause sleeps for d, or just yields the processor when d is zero
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		runtime.Gosched()
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
