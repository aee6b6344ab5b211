package metrics

import (
	"net/http"
	"time"
)

// MetricsCollector defines the interface for collecting device metrics.
//
// Implementations:
//   - PrometheusMetrics: client_golang collectors on a private registry
//   - NullMetrics: no-op implementation when metrics are disabled
type MetricsCollector interface {
	// ObserveSensorRead records one hardware read and how long it took
	ObserveSensorRead(ok bool, duration time.Duration)

	// IncrementSensorFaults counts samples discarded as implausible
	IncrementSensorFaults()

	// IncrementLoginAttempts counts login POSTs by outcome
	IncrementLoginAttempts(ok bool)

	// RecordSync records the outcome of a room synchronization
	RecordSync(ok bool)

	// RecordUpload records the outcome of a measurement batch upload
	RecordUpload(ok bool)

	// SetBufferDepth reports how many measurements wait for upload
	SetBufferDepth(n int)

	// IncrementPairingRequests counts pairing requests by request code
	IncrementPairingRequests(code int)

	// IncrementMQTTPublishes / IncrementMQTTErrors count telemetry publishes
	IncrementMQTTPublishes()
	IncrementMQTTErrors()

	// Handler exposes the metrics over HTTP (nil when not supported)
	Handler() http.Handler
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector
var _ MetricsCollector = (*PrometheusMetrics)(nil)
