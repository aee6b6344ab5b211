package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
)

const summaryInterval = 5 * time.Minute

// ErrorReporter receives sensor faults (usually *errors.ErrorHandler)
type ErrorReporter interface {
	Handle(ctx context.Context, err error)
}

// Subject polls a Driver at a bounded rate and fans accepted changes out to
// its observers, in registration order.
type Subject struct {
	driver      Driver
	readTimeout time.Duration
	now         func() time.Time
	nextRead    time.Time

	observers []Observer

	mu          sync.RWMutex
	temperature float64
	humidity    float64

	metrics  metrics.MetricsCollector
	tracker  *metrics.ReadTracker
	reporter ErrorReporter
}

// NewSubject creates a subject over driver. A zero readTimeout reads the
// hardware on every Poll.
func NewSubject(driver Driver, readTimeout time.Duration, collector metrics.MetricsCollector) *Subject {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Subject{
		driver:      driver,
		readTimeout: readTimeout,
		now:         time.Now,
		metrics:     collector,
		tracker:     metrics.NewReadTracker(summaryInterval),
	}
}

// SetClock replaces the time source used for rate limiting
func (s *Subject) SetClock(now func() time.Time) {
	s.now = now
}

// SetErrorReporter routes sensor faults to reporter instead of the log
func (s *Subject) SetErrorReporter(reporter ErrorReporter) {
	s.reporter = reporter
}

// Configure initializes the hardware driver. A failure is logged and
// returned; polling still proceeds and simply yields failed reads.
func (s *Subject) Configure() error {
	if err := s.driver.Configure(); err != nil {
		sensorErr := deverrors.NewSensorError("configure", err, s.driver.Name())
		s.report(sensorErr)
		return sensorErr
	}
	logger.LogInfo("🌡️ Sensor %s configured (read timeout %v)", s.driver.Name(), s.readTimeout)
	return nil
}

// Poll reads the hardware when the read timeout has elapsed and notifies the
// observers when either value changed and both are plausible. It reports
// whether a notification happened.
func (s *Subject) Poll() bool {
	now := s.now()
	if s.readTimeout > 0 {
		if now.Before(s.nextRead) {
			return false
		}
		s.nextRead = now.Add(s.readTimeout)
	}

	start := time.Now()
	temperature, humidity, err := s.driver.Read()
	s.metrics.ObserveSensorRead(err == nil, time.Since(start))
	defer s.tracker.SummarizeIfDue()

	if err != nil {
		s.tracker.RecordFailed()
		s.report(deverrors.NewSensorError("read", err, s.driver.Name()))
		return false
	}

	s.mu.RLock()
	changed := temperature != s.temperature || humidity != s.humidity
	s.mu.RUnlock()
	if !changed {
		return false
	}

	if !Plausible(temperature, humidity) {
		s.tracker.RecordRejected()
		s.metrics.IncrementSensorFaults()
		sensorErr := deverrors.NewSensorError("implausible sample", nil, s.driver.Name())
		sensorErr.Temperature = temperature
		sensorErr.Humidity = humidity
		s.report(sensorErr)
		return false
	}

	s.mu.Lock()
	s.temperature = temperature
	s.humidity = humidity
	s.mu.Unlock()
	s.tracker.RecordAccepted()

	logger.LogDebug("🌡️ %.2f°C %.2f%%", temperature, humidity)
	s.Notify()
	return true
}

// AddObserver appends an observer to the notification order
func (s *Subject) AddObserver(observer Observer) {
	s.observers = append(s.observers, observer)
}

// RemoveObserver drops an observer; unknown observers are ignored
func (s *Subject) RemoveObserver(observer Observer) {
	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify passes the current values to every observer in order
func (s *Subject) Notify() {
	temperature, humidity := s.Reading()
	for _, o := range s.observers {
		o.Update(temperature, humidity)
	}
}

// Reading returns the last accepted values (zero before the first one)
func (s *Subject) Reading() (temperature, humidity float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.temperature, s.humidity
}

// Observers returns how many observers are registered
func (s *Subject) Observers() int {
	return len(s.observers)
}

func (s *Subject) report(err error) {
	if s.reporter != nil {
		s.reporter.Handle(context.Background(), err)
		return
	}
	logger.LogWarn("⚠️ %v", err)
}

// String describes the subject for logs
func (s *Subject) String() string {
	return fmt.Sprintf("sensor(%s, %d observers)", s.driver.Name(), len(s.observers))
}
