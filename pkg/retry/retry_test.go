package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDoStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	got, attempts, err := Do(context.Background(), Bounded(3), func(attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", fmt.Errorf("HTTP 500")
		}
		return "token", nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got != "token" {
		t.Errorf("Expected 'token', got '%s'", got)
	}
	if attempts != 2 || calls != 2 {
		t.Errorf("Expected 2 attempts, got %d (calls %d)", attempts, calls)
	}
}

func TestDoExhaustsExactlyMaxAttempts(t *testing.T) {
	lastErr := fmt.Errorf("HTTP 401")
	calls := 0
	_, attempts, err := Do(context.Background(), Bounded(3), func(int) (int, error) {
		calls++
		return 0, lastErr
	})

	if calls != 3 || attempts != 3 {
		t.Errorf("Expected exactly 3 attempts, got %d (calls %d)", attempts, calls)
	}
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
}

func TestDoWaitsBetweenAttemptsOnly(t *testing.T) {
	var waits []time.Duration
	p := Policy{
		MaxAttempts: 3,
		Delay:       time.Second,
		Wait: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}

	Do(context.Background(), p, func(int) (bool, error) { return false, fmt.Errorf("fail") })

	if len(waits) != 2 {
		t.Fatalf("Expected 2 waits for 3 attempts, got %d", len(waits))
	}
	for _, w := range waits {
		if w != time.Second {
			t.Errorf("Expected 1s wait, got %v", w)
		}
	}
}

func TestForeverRetriesUntilSuccess(t *testing.T) {
	p := Forever(time.Second)
	p.Wait = func(context.Context, time.Duration) error { return nil }

	_, attempts, err := Do(context.Background(), p, func(attempt int) (bool, error) {
		if attempt < 7 {
			return false, fmt.Errorf("not yet")
		}
		return true, nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if attempts != 7 {
		t.Errorf("Expected 7 attempts, got %d", attempts)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Forever(time.Hour)
	p.Wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, attempts, err := Do(ctx, p, func(int) (int, error) { return 0, fmt.Errorf("down") })

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDefaultPauseYieldsWithoutDelay(t *testing.T) {
	if err := pause(context.Background(), 0); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pause(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
