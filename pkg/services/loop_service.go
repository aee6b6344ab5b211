package services

import (
	"context"
	"time"

	"air-analyzer/pkg/logger"
)

const summaryEvery = 30 * time.Second

// Stepper runs one pass of the cooperative device loop
type Stepper interface {
	Loop(ctx context.Context)
}

// LoopService drives a Stepper at a fixed cadence and keeps a count of
// passes that overran the interval
type LoopService struct {
	stepper  Stepper
	interval time.Duration
	now      func() time.Time

	passes      int
	overruns    int
	slowest     time.Duration
	lastSummary time.Time
}

// NewLoopService creates a loop service
func NewLoopService(stepper Stepper, interval time.Duration) *LoopService {
	return &LoopService{
		stepper:     stepper,
		interval:    interval,
		now:         time.Now,
		lastSummary: time.Now(),
	}
}

// Start runs the loop until ctx ends
func (s *LoopService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("🔄 Device loop started with interval: %v", s.interval)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔄 Device loop stopped")
			return
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step runs a single pass and updates the statistics
func (s *LoopService) Step(ctx context.Context) {
	start := s.now()
	s.stepper.Loop(ctx)
	elapsed := s.now().Sub(start)

	s.passes++
	if elapsed > s.interval {
		s.overruns++
		logger.LogTrace("🐢 Loop pass took %v (interval %v)", elapsed, s.interval)
	}
	if elapsed > s.slowest {
		s.slowest = elapsed
	}

	if s.now().Sub(s.lastSummary) >= summaryEvery {
		logger.LogDebug("📊 Loop summary - passes: %d, overruns: %d, slowest: %v", s.passes, s.overruns, s.slowest)
		s.lastSummary = s.now()
		s.passes, s.overruns, s.slowest = 0, 0, 0
	}
}

// Stats returns the counters accumulated since the last summary
func (s *LoopService) Stats() (passes, overruns int, slowest time.Duration) {
	return s.passes, s.overruns, s.slowest
}
