package health

import (
	"sync"
	"time"

	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/recovery"
)

// Health states reported by the monitor
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// BackendHealthMonitor turns synchronization and upload outcomes into a
// health state. A failing streak is tolerated for the grace period before
// the backend is reported degraded.
type BackendHealthMonitor struct {
	mu          sync.RWMutex
	tracker     *recovery.FailureTracker
	degraded    bool
	lastSuccess time.Time
	lastFailure time.Time
	successes   int
	failures    int
	now         func() time.Time
}

// NewBackendHealthMonitor creates a healthy monitor
func NewBackendHealthMonitor(gracePeriod time.Duration) *BackendHealthMonitor {
	return &BackendHealthMonitor{
		tracker: recovery.NewFailureTracker(gracePeriod),
		now:     time.Now,
	}
}

// SetClock replaces the time source
func (m *BackendHealthMonitor) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	m.tracker.SetClock(now)
}

// RecordOutcome records the result of a backend round trip
func (m *BackendHealthMonitor) RecordOutcome(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok {
		m.successes++
		m.lastSuccess = m.now()
		m.tracker.RecordSuccess()
		if m.degraded {
			logger.LogInfo("💚 Backend recovered")
		}
		m.degraded = false
		return
	}

	m.failures++
	m.lastFailure = m.now()
	m.tracker.RecordFailure()
	if m.tracker.ShouldReport() {
		m.degraded = true
		logger.LogWarn("💔 Backend degraded after %d consecutive failure(s) over %v",
			m.tracker.Streak(), m.tracker.Since().Round(time.Second))
	}
}

// Status returns StatusHealthy or StatusDegraded
func (m *BackendHealthMonitor) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.degraded {
		return StatusDegraded
	}
	return StatusHealthy
}

// IsHealthy reports whether the backend is not degraded
func (m *BackendHealthMonitor) IsHealthy() bool {
	return m.Status() == StatusHealthy
}

// ConsecutiveFailures returns the length of the current failing streak
func (m *BackendHealthMonitor) ConsecutiveFailures() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tracker.Streak()
}

// LastSuccess returns the time of the last successful round trip
func (m *BackendHealthMonitor) LastSuccess() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSuccess
}

// Counts returns the totals since start
func (m *BackendHealthMonitor) Counts() (successes, failures int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.successes, m.failures
}
