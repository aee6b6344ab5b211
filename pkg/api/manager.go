package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"air-analyzer/pkg/config"
	deverrors "air-analyzer/pkg/errors"
	"air-analyzer/pkg/logger"
	"air-analyzer/pkg/metrics"
	"air-analyzer/pkg/retry"
)

// Link reports the state of the network connection
type Link interface {
	IsConnected() bool
	LocalIP() string
}

// Gate decides when buffered measurements are due for upload
type Gate interface {
	Begin(ctx context.Context, updateMinutes int) error
	CheckDatetime() bool
	ConfigNextDatetime()
	ActualTimestamp() string
}

// ErrorReporter receives typed failures for logging and diagnostics
type ErrorReporter interface {
	Handle(ctx context.Context, err error)
}

// OutcomeListener is told the result of every synchronization and upload
type OutcomeListener interface {
	RecordOutcome(ok bool)
}

var errNotSynchronized = errors.New("room not synchronized")

// Status is a point-in-time view of the manager for the status server
type Status struct {
	RoomNumber  uint8     `json:"room_number"`
	Updated     bool      `json:"updated"`
	Buffered    int       `json:"buffered"`
	LastSync    time.Time `json:"last_sync,omitempty"`
	LastUpload  time.Time `json:"last_upload,omitempty"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
}

// Manager keeps the backend's view of this room and its measurements in line
// with the device. Every privileged call sequence starts with a fresh login.
type Manager struct {
	client     *http.Client
	link       Link
	gate       Gate
	metrics    metrics.MetricsCollector
	reporter   ErrorReporter
	listener   OutcomeListener
	retryDelay time.Duration
	retryWait  func(ctx context.Context, d time.Duration) error

	baseURL     string
	maxAttempts int
	username    string
	password    string

	buffer measurementBuffer

	mu          sync.RWMutex
	roomNumber  uint8
	updated     bool
	lastSync    time.Time
	lastUpload  time.Time
	tokenExpiry time.Time
}

// NewManager creates a manager. Connection parameters are bound later by
// Initialize.
func NewManager(settings config.APISettings, link Link, gate Gate, collector metrics.MetricsCollector) *Manager {
	if collector == nil {
		collector = metrics.NewNullMetrics()
	}
	return &Manager{
		client:     &http.Client{Timeout: settings.Timeout},
		link:       link,
		gate:       gate,
		metrics:    collector,
		retryDelay: settings.RetryDelay,
	}
}

// SetErrorReporter routes typed failures to reporter instead of the log
func (m *Manager) SetErrorReporter(reporter ErrorReporter) {
	m.reporter = reporter
}

// SetOutcomeListener registers the receiver of round-trip outcomes
func (m *Manager) SetOutcomeListener(listener OutcomeListener) {
	m.listener = listener
}

// SetHTTPClient replaces the HTTP client
func (m *Manager) SetHTTPClient(client *http.Client) {
	m.client = client
}

// SetCredentials stores the login credentials; call before Initialize
func (m *Manager) SetCredentials(username, password string) {
	m.username = username
	m.password = password
}

// SetRoomNumber changes the local room identity without any network call
func (m *Manager) SetRoomNumber(n uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomNumber = n
}

// RoomNumber returns the local room identity
func (m *Manager) RoomNumber() uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roomNumber
}

// IsUpdated reports the outcome of the latest synchronization or upload
func (m *Manager) IsUpdated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updated
}

// Status returns a snapshot for the status server
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		RoomNumber:  m.roomNumber,
		Updated:     m.updated,
		Buffered:    m.buffer.len(),
		LastSync:    m.lastSync,
		LastUpload:  m.lastUpload,
		TokenExpiry: m.tokenExpiry,
	}
}

// Measurements returns a copy of the buffered measurements
func (m *Manager) Measurements() []Measurement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buffer.snapshot()
}

// Initialize binds the backend, starts the update gate and blocks until the
// room has been synchronized once. It only fails when ctx ends.
func (m *Manager) Initialize(ctx context.Context, address string, port, maxAttempts, updateMinutes int) error {
	if updateMinutes > config.MaxUpdateMinutes {
		updateMinutes = config.MaxUpdateMinutes
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	m.baseURL = fmt.Sprintf("%s:%d", address, port)
	m.maxAttempts = maxAttempts

	logger.LogInfo("🌐 Backend %s (login attempts %d, upload every %d min)", m.baseURL, maxAttempts, updateMinutes)

	if err := m.gate.Begin(ctx, updateMinutes); err != nil {
		return err
	}

	policy := retry.Forever(m.retryDelay)
	policy.Wait = m.retryWait
	_, attempts, err := retry.Do(ctx, policy, func(attempt int) (struct{}, error) {
		if m.SynchronizeRoom(ctx) {
			return struct{}{}, nil
		}
		logger.LogWarn("🌐 Startup synchronization attempt %d failed, retrying in %v", attempt, m.retryDelay)
		return struct{}{}, errNotSynchronized
	})
	if err != nil {
		return fmt.Errorf("initial synchronization: %w", err)
	}

	logger.LogInfo("✅ Room %d synchronized after %d attempt(s)", m.RoomNumber(), attempts)
	return nil
}

// SynchronizeRoom logs in and marks the room active with its local IP. It
// returns true only when login and both room calls succeeded; the result
// becomes IsUpdated.
func (m *Manager) SynchronizeRoom(ctx context.Context) bool {
	ok := m.synchronizeRoom(ctx)

	m.mu.Lock()
	m.updated = ok
	if ok {
		m.lastSync = time.Now()
	}
	m.mu.Unlock()

	m.metrics.RecordSync(ok)
	m.notify(ok)
	if ok {
		logger.LogInfo("🌐 Room %d synchronized", m.RoomNumber())
	}
	return ok
}

func (m *Manager) synchronizeRoom(ctx context.Context) bool {
	if !m.link.IsConnected() {
		m.report(ctx, deverrors.NewConnectivityError("synchronize room", "wifi"))
		return false
	}

	token, err := m.login(ctx)
	if err != nil {
		m.report(ctx, err)
		return false
	}

	if !m.expectOK(ctx, "room activation", RouteRoomActivation, func() (response, error) {
		return m.requestRoomActivation(ctx, token)
	}) {
		return false
	}

	return m.expectOK(ctx, "room local ip", RouteRoomLocalIP, func() (response, error) {
		return m.requestRoomLocalIP(ctx, token, m.link.LocalIP())
	})
}

// login posts the credentials up to maxAttempts times and returns the token
// from the first HTTP 200
func (m *Manager) login(ctx context.Context) (Token, error) {
	token, attempts, err := retry.Do(ctx, retry.Bounded(m.maxAttempts), func(attempt int) (Token, error) {
		resp, err := m.requestLogin(ctx)
		if err != nil {
			m.metrics.IncrementLoginAttempts(false)
			return Token{}, err
		}
		if resp.status != http.StatusOK {
			m.metrics.IncrementLoginAttempts(false)
			logger.LogDebug("🔑 Login attempt %d/%d: HTTP %d", attempt, m.maxAttempts, resp.status)
			return Token{}, deverrors.NewAPIError("login", nil, RouteLogin, resp.status)
		}

		var token Token
		if err := json.Unmarshal(resp.body, &token); err != nil {
			m.metrics.IncrementLoginAttempts(false)
			return Token{}, deverrors.NewAPIError("login", fmt.Errorf("decode token: %w", err), RouteLogin, resp.status)
		}
		m.metrics.IncrementLoginAttempts(true)
		return token, nil
	})
	if err != nil {
		return Token{}, deverrors.NewAuthError(err, m.username, attempts)
	}

	if exp, ok := token.Expiry(); ok {
		m.mu.Lock()
		m.tokenExpiry = exp
		m.mu.Unlock()
		logger.LogTrace("🔑 Token expires %s", exp.Format(time.RFC3339))
	}
	return token, nil
}

// RecordMeasurement buffers a sample and uploads the whole buffer. The
// buffer is cleared only after the backend accepted it with HTTP 200.
// It returns the resulting IsUpdated state.
func (m *Manager) RecordMeasurement(ctx context.Context, timestamp string, temperature, humidity float64) bool {
	m.mu.Lock()
	m.buffer.push(NewMeasurement(timestamp, m.roomNumber, temperature, humidity))
	payload, err := m.buffer.marshal()
	depth := m.buffer.len()
	wasUpdated := m.updated
	m.mu.Unlock()
	m.metrics.SetBufferDepth(depth)

	if err != nil {
		m.report(ctx, deverrors.NewAPIError("encode measurements", err, RouteMeasurementsSet, 0))
		return m.setUpdated(false)
	}

	if !m.link.IsConnected() {
		m.report(ctx, deverrors.NewConnectivityError("record measurement", "wifi"))
		return m.setUpdated(false)
	}

	token, err := m.login(ctx)
	if err != nil {
		m.report(ctx, err)
		return m.setUpdated(false)
	}

	if !wasUpdated {
		m.expectOK(ctx, "room local ip", RouteRoomLocalIP, func() (response, error) {
			return m.requestRoomLocalIP(ctx, token, m.link.LocalIP())
		})
	}

	ok := m.expectOK(ctx, "upload measurements", RouteMeasurementsSet, func() (response, error) {
		return m.requestMeasurementsSet(ctx, token, payload)
	})
	m.metrics.RecordUpload(ok)
	if !ok {
		logger.LogWarn("🌐 Upload failed, keeping %d buffered measurement(s)", depth)
		return m.setUpdated(false)
	}

	m.mu.Lock()
	m.buffer.clear()
	m.lastUpload = time.Now()
	m.mu.Unlock()
	m.metrics.SetBufferDepth(0)

	logger.LogInfo("📤 Uploaded %d measurement(s) for room %d", depth, m.RoomNumber())
	return m.setUpdated(true)
}

// Update is the sensor observer callback: when the gate reports the update
// window elapsed, the sample is recorded and the next window scheduled
func (m *Manager) Update(temperature, humidity float64) {
	if !m.gate.CheckDatetime() {
		return
	}
	m.RecordMeasurement(context.Background(), m.gate.ActualTimestamp(), temperature, humidity)
	m.gate.ConfigNextDatetime()
}

// expectOK runs a backend call and reports whether it returned HTTP 200
func (m *Manager) expectOK(ctx context.Context, op, route string, call func() (response, error)) bool {
	resp, err := call()
	if err != nil {
		m.report(ctx, deverrors.NewAPIError(op, err, route, 0))
		return false
	}
	if resp.status != http.StatusOK {
		m.report(ctx, deverrors.NewAPIError(op, nil, route, resp.status))
		return false
	}
	return true
}

func (m *Manager) setUpdated(ok bool) bool {
	m.mu.Lock()
	m.updated = ok
	m.mu.Unlock()
	m.notify(ok)
	return ok
}

func (m *Manager) notify(ok bool) {
	if m.listener != nil {
		m.listener.RecordOutcome(ok)
	}
}

func (m *Manager) report(ctx context.Context, err error) {
	if m.reporter != nil {
		m.reporter.Handle(ctx, err)
		return
	}
	logger.LogWarn("⚠️ %v", err)
}
