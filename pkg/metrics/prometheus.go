package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "air_analyzer"

// PrometheusMetrics tracks device metrics on its own registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	sensorReads        *prometheus.CounterVec
	sensorFaults       prometheus.Counter
	sensorReadDuration prometheus.Histogram
	loginAttempts      *prometheus.CounterVec
	syncs              *prometheus.CounterVec
	uploads            *prometheus.CounterVec
	updated            prometheus.Gauge
	bufferDepth        prometheus.Gauge
	pairingRequests    *prometheus.CounterVec
	mqttPublishes      prometheus.Counter
	mqttErrors         prometheus.Counter
}

// NewPrometheusMetrics creates and registers every device collector
func NewPrometheusMetrics() *PrometheusMetrics {
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		sensorReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_reads_total",
			Help:      "Hardware sensor reads by result.",
		}, []string{"result"}),
		sensorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_faults_total",
			Help:      "Samples discarded as outside the plausible range.",
		}),
		sensorReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sensor_read_duration_seconds",
			Help:      "Duration of hardware sensor reads.",
			Buckets:   []float64{.005, .01, .02, .05, .1, .25, .5, 1},
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Backend login requests by result.",
		}, []string{"result"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_syncs_total",
			Help:      "Room synchronizations by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measurement_uploads_total",
			Help:      "Measurement batch uploads by result.",
		}, []string{"result"}),
		updated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "backend_updated",
			Help:      "1 when the last synchronization or upload succeeded.",
		}),
		bufferDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "measurement_buffer_depth",
			Help:      "Measurements waiting for upload.",
		}),
		pairingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairing_requests_total",
			Help:      "Pairing socket requests by request code.",
		}, []string{"code"}),
		mqttPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_publishes_total",
			Help:      "Successful MQTT publishes.",
		}),
		mqttErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_errors_total",
			Help:      "Failed MQTT publishes.",
		}),
	}

	pm.registry.MustRegister(
		pm.sensorReads,
		pm.sensorFaults,
		pm.sensorReadDuration,
		pm.loginAttempts,
		pm.syncs,
		pm.uploads,
		pm.updated,
		pm.bufferDepth,
		pm.pairingRequests,
		pm.mqttPublishes,
		pm.mqttErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return pm
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ObserveSensorRead records a hardware read
func (pm *PrometheusMetrics) ObserveSensorRead(ok bool, duration time.Duration) {
	pm.sensorReads.WithLabelValues(result(ok)).Inc()
	if ok {
		pm.sensorReadDuration.Observe(duration.Seconds())
	}
}

// IncrementSensorFaults counts an implausible sample
func (pm *PrometheusMetrics) IncrementSensorFaults() {
	pm.sensorFaults.Inc()
}

// IncrementLoginAttempts counts a login request
func (pm *PrometheusMetrics) IncrementLoginAttempts(ok bool) {
	pm.loginAttempts.WithLabelValues(result(ok)).Inc()
}

// RecordSync records a room synchronization and the resulting updated state
func (pm *PrometheusMetrics) RecordSync(ok bool) {
	pm.syncs.WithLabelValues(result(ok)).Inc()
	pm.setUpdated(ok)
}

// RecordUpload records a batch upload and the resulting updated state
func (pm *PrometheusMetrics) RecordUpload(ok bool) {
	pm.uploads.WithLabelValues(result(ok)).Inc()
	pm.setUpdated(ok)
}

func (pm *PrometheusMetrics) setUpdated(ok bool) {
	if ok {
		pm.updated.Set(1)
	} else {
		pm.updated.Set(0)
	}
}

// SetBufferDepth reports the measurement buffer length
func (pm *PrometheusMetrics) SetBufferDepth(n int) {
	pm.bufferDepth.Set(float64(n))
}

// IncrementPairingRequests counts a pairing request
func (pm *PrometheusMetrics) IncrementPairingRequests(code int) {
	pm.pairingRequests.WithLabelValues(strconv.Itoa(code)).Inc()
}

// IncrementMQTTPublishes increments the MQTT publish counter
func (pm *PrometheusMetrics) IncrementMQTTPublishes() {
	pm.mqttPublishes.Inc()
}

// IncrementMQTTErrors increments the MQTT error counter
func (pm *PrometheusMetrics) IncrementMQTTErrors() {
	pm.mqttErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}
