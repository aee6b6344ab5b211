package recovery

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"air-analyzer/pkg/logger"
)

// ErrCircuitOpen is returned without calling through while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// StateClosed - normal operation, calls pass through
	StateClosed CircuitState = iota
	// StateOpen - failing, calls rejected immediately
	StateOpen
	// StateHalfOpen - probing, a limited number of calls allowed
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	MaxFailures      int           // Default: 5
	Timeout          time.Duration // Default: 30 seconds
	HalfOpenMaxTries int           // Default: 3
}

// CircuitBreaker fails fast after repeated failures of an optional
// collaborator, so a dead broker cannot stall the device loop
type CircuitBreaker struct {
	name             string
	maxFailures      int
	timeout          time.Duration
	halfOpenMaxTries int
	now              func() time.Time

	mu               sync.Mutex
	state            CircuitState
	failures         int
	halfOpenAttempts int
	lastFailure      time.Time
	lastChange       time.Time
}

// NewCircuitBreaker creates a closed breaker; name appears in log lines
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HalfOpenMaxTries == 0 {
		config.HalfOpenMaxTries = 3
	}

	cb := &CircuitBreaker{
		name:             name,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxTries: config.HalfOpenMaxTries,
		now:              time.Now,
		state:            StateClosed,
	}
	cb.lastChange = cb.now()
	return cb
}

// Call runs fn unless the breaker is open and records its outcome
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) <= cb.timeout {
			return fmt.Errorf("%s: %w (%d failures)", cb.name, ErrCircuitOpen, cb.failures)
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenAttempts = 1
		return nil
	case StateHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			return fmt.Errorf("%s: %w (probe limit reached)", cb.name, ErrCircuitOpen)
		}
		cb.halfOpenAttempts++
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.maxFailures) {
			cb.transition(StateOpen)
			cb.halfOpenAttempts = 0
		}
		return
	}

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		if cb.halfOpenAttempts >= cb.halfOpenMaxTries {
			cb.transition(StateClosed)
			cb.failures = 0
			cb.halfOpenAttempts = 0
		}
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	logger.LogWarn("🔌 %s circuit %s -> %s", cb.name, cb.state, to)
	cb.state = to
	cb.lastChange = cb.now()
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the failure count of the current streak
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenAttempts = 0
	cb.lastChange = cb.now()
}

// Stats returns a snapshot for logs
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:       cb.state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		InState:     cb.now().Sub(cb.lastChange),
	}
}

// CircuitBreakerStats holds statistics about the circuit breaker
type CircuitBreakerStats struct {
	State       CircuitState
	Failures    int
	LastFailure time.Time
	InState     time.Duration
}

func (s CircuitBreakerStats) String() string {
	return fmt.Sprintf("state=%s failures=%d in_state=%s", s.State, s.Failures, s.InState.Round(time.Second))
}
