package recovery

import "time"

// FailureTracker follows a streak of consecutive failures and reports when
// it has lasted longer than the grace period. It is not safe for concurrent
// use; callers hold their own lock.
type FailureTracker struct {
	grace    time.Duration
	now      func() time.Time
	streak   int
	first    time.Time
	reported bool
}

// NewFailureTracker creates a tracker; a zero grace period defaults to 15s
func NewFailureTracker(grace time.Duration) *FailureTracker {
	if grace == 0 {
		grace = 15 * time.Second
	}
	return &FailureTracker{grace: grace, now: time.Now}
}

// RecordFailure extends the streak and reports whether the grace period
// has expired
func (t *FailureTracker) RecordFailure() bool {
	t.streak++
	if t.first.IsZero() {
		t.first = t.now()
	}
	return t.Expired()
}

// RecordSuccess ends the streak
func (t *FailureTracker) RecordSuccess() {
	t.streak = 0
	t.first = time.Time{}
	t.reported = false
}

// Streak returns the number of consecutive failures
func (t *FailureTracker) Streak() int { return t.streak }

// Expired reports whether the current streak outlasted the grace period
func (t *FailureTracker) Expired() bool {
	return !t.first.IsZero() && t.now().Sub(t.first) >= t.grace
}

// ShouldReport is true once per streak, after the grace period expired
func (t *FailureTracker) ShouldReport() bool {
	if t.reported || !t.Expired() {
		return false
	}
	t.reported = true
	return true
}

// InGracePeriod reports a failing streak still within its grace period
func (t *FailureTracker) InGracePeriod() bool {
	return !t.first.IsZero() && !t.Expired()
}

// Since returns how long the current streak has lasted
func (t *FailureTracker) Since() time.Duration {
	if t.first.IsZero() {
		return 0
	}
	return t.now().Sub(t.first)
}

// SetClock replaces the time source
func (t *FailureTracker) SetClock(now func() time.Time) {
	t.now = now
}
