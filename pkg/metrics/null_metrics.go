package metrics

import (
	"net/http"
	"time"
)

// NullMetrics is a no-op implementation of MetricsCollector, used when the
// status server is disabled.
type NullMetrics struct{}

// NewNullMetrics creates a new NullMetrics instance
func NewNullMetrics() *NullMetrics {
	return &NullMetrics{}
}

func (nm *NullMetrics) ObserveSensorRead(ok bool, duration time.Duration) {}
func (nm *NullMetrics) IncrementSensorFaults()                           {}
func (nm *NullMetrics) IncrementLoginAttempts(ok bool)                   {}
func (nm *NullMetrics) RecordSync(ok bool)                               {}
func (nm *NullMetrics) RecordUpload(ok bool)                             {}
func (nm *NullMetrics) SetBufferDepth(n int)                             {}
func (nm *NullMetrics) IncrementPairingRequests(code int)                {}
func (nm *NullMetrics) IncrementMQTTPublishes()                          {}
func (nm *NullMetrics) IncrementMQTTErrors()                             {}

// Handler returns nil; there is nothing to expose
func (nm *NullMetrics) Handler() http.Handler { return nil }

// Compile-time verification that NullMetrics implements MetricsCollector
var _ MetricsCollector = (*NullMetrics)(nil)
