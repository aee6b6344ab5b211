package services

import (
	"context"
	"fmt"
	"time"

	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
)

// HeartbeatPublisher is the part of the MQTT publisher the heartbeat needs
type HeartbeatPublisher interface {
	PublishStatusOnline(ctx context.Context) error
	PublishDiagnostic(ctx context.Context, code int, message string) error
	IsConnected() bool
}

// BackendHealth reports whether the backend is being reached
type BackendHealth interface {
	IsHealthy() bool
	ConsecutiveFailures() int
}

// HeartbeatService manages periodic status heartbeats
type HeartbeatService struct {
	publisher HeartbeatPublisher
	health    BackendHealth
	interval  time.Duration
}

// NewHeartbeatService creates a new heartbeat service
func NewHeartbeatService(publisher HeartbeatPublisher, health BackendHealth, interval time.Duration) *HeartbeatService {
	return &HeartbeatService{
		publisher: publisher,
		health:    health,
		interval:  interval,
	}
}

// Start begins the heartbeat loop
func (s *HeartbeatService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.LogInfo("💓 Heartbeat service started with interval: %v", s.interval)

	for {
		select {
		case <-ctx.Done():
			logger.LogDebug("🔇 Heartbeat service stopped")
			return
		case <-ticker.C:
			s.SendHeartbeat(ctx)
		}
	}
}

// SendHeartbeat publishes online status and a diagnostic describing the
// backend: code 0 while healthy, the API code while degraded
func (s *HeartbeatService) SendHeartbeat(ctx context.Context) {
	if !s.publisher.IsConnected() {
		logger.LogDebug("💔 Skipping heartbeat - broker not connected")
		return
	}

	if err := s.publisher.PublishStatusOnline(ctx); err != nil {
		logger.LogError("⚠️ Heartbeat failed: %v", err)
		return
	}
	logger.LogDebug("💓 Heartbeat sent: online")

	code, message := 0, "Air Analyzer running"
	if s.health != nil && !s.health.IsHealthy() {
		code = deverrors.CodeAPI
		message = fmt.Sprintf("Backend unreachable (%d consecutive failures)", s.health.ConsecutiveFailures())
	}
	if err := s.publisher.PublishDiagnostic(ctx, code, message); err != nil {
		logger.LogDebug("⚠️ Diagnostic heartbeat failed: %v", err)
	}
}
