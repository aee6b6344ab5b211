package recovery

import (
	"errors"
	"testing"
	"time"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errBroker = errors.New("broker unreachable")

func newTestBreaker(clock *manualClock) *CircuitBreaker {
	cb := NewCircuitBreaker("mqtt", CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxTries: 1})
	cb.now = clock.now
	return cb
}

func TestCircuitOpensAfterMaxFailures(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)
	fail := func() error { return errBroker }

	cb.Call(fail)
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after one failure, got %s", cb.State())
	}
	cb.Call(fail)
	if cb.State() != StateOpen {
		t.Fatalf("Expected OPEN after two failures, got %s", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected call to be rejected while open")
	}
}

func TestCircuitRecoversThroughHalfOpen(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)
	cb.Call(func() error { return errBroker })
	cb.Call(func() error { return errBroker })

	clock.advance(2 * time.Minute)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Fatalf("Expected probe to pass, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("Expected CLOSED after successful probe, got %s", cb.State())
	}
	if cb.Failures() != 0 {
		t.Errorf("Expected failures reset, got %d", cb.Failures())
	}
}

func TestCircuitReopensOnFailedProbe(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)
	cb.Call(func() error { return errBroker })
	cb.Call(func() error { return errBroker })

	clock.advance(2 * time.Minute)
	cb.Call(func() error { return errBroker })
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after failed probe, got %s", cb.State())
	}
}

func TestCircuitReset(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	cb := newTestBreaker(clock)
	cb.Call(func() error { return errBroker })
	cb.Call(func() error { return errBroker })

	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("Expected reset breaker, got %s", cb.Stats())
	}
}

func TestFailureTrackerGracePeriod(t *testing.T) {
	clock := &manualClock{t: time.Unix(1000, 0)}
	tr := NewFailureTracker(30 * time.Second)
	tr.now = clock.now

	if tr.RecordFailure() {
		t.Error("Expected first failure to be within grace period")
	}
	if !tr.InGracePeriod() {
		t.Error("Expected tracker to be in grace period")
	}

	clock.advance(31 * time.Second)
	if !tr.RecordFailure() {
		t.Error("Expected grace period to expire")
	}
	if tr.Streak() != 2 {
		t.Errorf("Expected streak 2, got %d", tr.Streak())
	}
	if !tr.ShouldReport() {
		t.Error("Expected first report after expiry")
	}
	if tr.ShouldReport() {
		t.Error("Expected a single report per streak")
	}

	tr.RecordSuccess()
	if tr.Streak() != 0 || tr.Expired() || tr.Since() != 0 {
		t.Error("Expected success to end the streak")
	}
}
