package metrics

import (
	"sync"
	"time"

	"air-analyzer/pkg/logger"
)

// ReadTracker counts sensor reads between periodic log summaries
type ReadTracker struct {
	accepted        int
	rejected        int
	failed          int
	lastSummaryTime time.Time
	summaryInterval time.Duration
	now             func() time.Time
	mu              sync.Mutex
}

// ReadStats is a snapshot of the counters since the last summary
type ReadStats struct {
	Accepted   int
	Rejected   int
	Failed     int
	AcceptRate float64
}

// NewReadTracker creates a tracker that summarizes every interval
func NewReadTracker(summaryInterval time.Duration) *ReadTracker {
	return newReadTracker(summaryInterval, time.Now)
}

func newReadTracker(summaryInterval time.Duration, now func() time.Time) *ReadTracker {
	return &ReadTracker{
		lastSummaryTime: now(),
		summaryInterval: summaryInterval,
		now:             now,
	}
}

// RecordAccepted counts a sample that updated the reading
func (rt *ReadTracker) RecordAccepted() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.accepted++
}

// RecordRejected counts a sample outside the plausible range
func (rt *ReadTracker) RecordRejected() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.rejected++
}

// RecordFailed counts a read the driver could not complete
func (rt *ReadTracker) RecordFailed() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.failed++
}

// Stats returns the current counters
func (rt *ReadTracker) Stats() ReadStats {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.statsLocked()
}

func (rt *ReadTracker) statsLocked() ReadStats {
	stats := ReadStats{Accepted: rt.accepted, Rejected: rt.rejected, Failed: rt.failed}
	if total := rt.accepted + rt.rejected + rt.failed; total > 0 {
		stats.AcceptRate = float64(rt.accepted) / float64(total) * 100.0
	}
	return stats
}

// SummarizeIfDue logs and resets the counters once the interval has elapsed.
// It reports whether a summary was written.
func (rt *ReadTracker) SummarizeIfDue() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	now := rt.now()
	if now.Sub(rt.lastSummaryTime) < rt.summaryInterval {
		return false
	}

	stats := rt.statsLocked()
	logger.LogInfo("📊 Sensor summary - Accepted: %d, Rejected: %d, Failed: %d (%.1f%%), Last %v",
		stats.Accepted, stats.Rejected, stats.Failed, stats.AcceptRate, rt.summaryInterval)

	rt.lastSummaryTime = now
	rt.accepted = 0
	rt.rejected = 0
	rt.failed = 0
	return true
}
