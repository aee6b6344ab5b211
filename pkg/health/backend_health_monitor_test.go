package health

import (
	"testing"
	"time"
)

func newTestMonitor(grace time.Duration) (*BackendHealthMonitor, *time.Time) {
	now := time.Unix(1000, 0)
	m := NewBackendHealthMonitor(grace)
	m.SetClock(func() time.Time { return now })
	return m, &now
}

func TestMonitorStartsHealthy(t *testing.T) {
	m, _ := newTestMonitor(time.Minute)
	if m.Status() != StatusHealthy {
		t.Errorf("Expected healthy, got %s", m.Status())
	}
	if !m.LastSuccess().IsZero() {
		t.Error("Expected no success yet")
	}
}

func TestMonitorCountsOutcomes(t *testing.T) {
	m, _ := newTestMonitor(time.Minute)

	m.RecordOutcome(true)
	m.RecordOutcome(false)
	m.RecordOutcome(false)

	s, f := m.Counts()
	if s != 1 || f != 2 {
		t.Errorf("Expected 1 success and 2 failures, got %d and %d", s, f)
	}
	if m.ConsecutiveFailures() != 2 {
		t.Errorf("Expected streak 2, got %d", m.ConsecutiveFailures())
	}
	// Within the grace period
	if !m.IsHealthy() {
		t.Error("Expected healthy within the grace period")
	}
}

func TestMonitorRecoversOnSuccess(t *testing.T) {
	m, _ := newTestMonitor(time.Minute)

	m.RecordOutcome(false)
	m.RecordOutcome(true)

	if m.ConsecutiveFailures() != 0 {
		t.Errorf("Expected streak reset, got %d", m.ConsecutiveFailures())
	}
	if m.LastSuccess().IsZero() {
		t.Error("Expected last success to be recorded")
	}
}

func TestDegradedAfterGracePeriod(t *testing.T) {
	m, now := newTestMonitor(time.Minute)

	m.RecordOutcome(false)
	*now = now.Add(2 * time.Minute)
	m.RecordOutcome(false)

	if m.Status() != StatusDegraded {
		t.Fatalf("Expected degraded, got %s", m.Status())
	}

	m.RecordOutcome(true)
	if m.Status() != StatusHealthy {
		t.Errorf("Expected healthy after success, got %s", m.Status())
	}
}
