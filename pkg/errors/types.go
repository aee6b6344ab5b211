package errors

import (
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes published on the diagnostics topic
const (
	CodeConfig       = 1
	CodeConnectivity = 2
	CodeAuth         = 3
	CodeAPI          = 4
	CodeSensor       = 5
	CodePairing      = 6
	CodeStorage      = 7
	CodeMQTT         = 8
	CodeValidation   = 9
	CodeUnknown      = 99
)

// DeviceError is the base error type for all device errors
type DeviceError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Base gives access to the shared fields of any specialised error
func (e *DeviceError) Base() *DeviceError {
	return e
}

// ConnectivityError means the network link was down when a call needed it.
// It is never retried within the call that observed it.
type ConnectivityError struct {
	DeviceError
	Interface string
}

// NewConnectivityError creates a new connectivity error
func NewConnectivityError(op string, iface string) *ConnectivityError {
	return &ConnectivityError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      fmt.Errorf("network link is down"),
			Severity: SeverityWarning,
			Code:     CodeConnectivity,
		},
		Interface: iface,
	}
}

// Error implements the error interface
func (e *ConnectivityError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("[%s] Link %s: %s: %v", e.Severity, e.Interface, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Link: %s: %v", e.Severity, e.Op, e.Err)
}

// AuthError represents a login that produced no token
type AuthError struct {
	DeviceError
	Username string
	Attempts int
}

// NewAuthError creates a new authentication error
func NewAuthError(err error, username string, attempts int) *AuthError {
	return &AuthError{
		DeviceError: DeviceError{
			Op:       "login",
			Err:      err,
			Severity: SeverityError,
			Code:     CodeAuth,
		},
		Username: username,
		Attempts: attempts,
	}
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("[%s] Login as '%s' failed after %d attempt(s): %v",
		e.Severity, e.Username, e.Attempts, e.Err)
}

// APIError represents a backend call that did not answer HTTP 200
type APIError struct {
	DeviceError
	Route      string
	StatusCode int
}

// NewAPIError creates a new backend API error. statusCode is 0 when no
// response was received at all.
func NewAPIError(op string, err error, route string, statusCode int) *APIError {
	return &APIError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeAPI,
		},
		Route:      route,
		StatusCode: statusCode,
	}
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		if e.Err == nil {
			return fmt.Sprintf("[%s] API %s (HTTP %d): %s", e.Severity, e.Route, e.StatusCode, e.Op)
		}
		return fmt.Sprintf("[%s] API %s (HTTP %d): %s: %v",
			e.Severity, e.Route, e.StatusCode, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] API %s: %s: %v", e.Severity, e.Route, e.Op, e.Err)
}

// SensorError represents a failed or implausible sensor sample
type SensorError struct {
	DeviceError
	Driver      string
	Temperature float64
	Humidity    float64
}

// NewSensorError creates a new sensor error
func NewSensorError(op string, err error, driver string) *SensorError {
	return &SensorError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeSensor,
		},
		Driver: driver,
	}
}

// Error implements the error interface
func (e *SensorError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] Sensor %s: %s (t=%.2f, h=%.2f)",
			e.Severity, e.Driver, e.Op, e.Temperature, e.Humidity)
	}
	return fmt.Sprintf("[%s] Sensor %s: %s: %v", e.Severity, e.Driver, e.Op, e.Err)
}

// PairingError represents a malformed or unusable pairing request
type PairingError struct {
	DeviceError
	Remote string
}

// NewPairingError creates a new pairing error
func NewPairingError(op string, err error, remote string) *PairingError {
	return &PairingError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodePairing,
		},
		Remote: remote,
	}
}

// Error implements the error interface
func (e *PairingError) Error() string {
	if e.Remote != "" {
		return fmt.Sprintf("[%s] Pairing client %s: %s: %v", e.Severity, e.Remote, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Pairing: %s: %v", e.Severity, e.Op, e.Err)
}

// StorageError represents a failure of the persistent byte store
type StorageError struct {
	DeviceError
	Address int
}

// NewStorageError creates a new storage error
func NewStorageError(op string, err error, address int) *StorageError {
	return &StorageError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeStorage,
		},
		Address: address,
	}
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("[%s] Storage @%d: %s: %v", e.Severity, e.Address, e.Op, e.Err)
}

// MQTTError represents errors from MQTT operations
type MQTTError struct {
	DeviceError
	Broker string
	Topic  string
}

// NewMQTTError creates a new MQTT error
func NewMQTTError(op string, err error, broker string) *MQTTError {
	return &MQTTError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeMQTT,
		},
		Broker: broker,
	}
}

// Error implements the error interface
func (e *MQTTError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	DeviceError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(op string, err error, field string) *ConfigError {
	return &ConfigError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %s: %v",
			e.Severity, e.Field, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %s: %v", e.Severity, e.Op, e.Err)
}

// ValidationError represents validation errors
type ValidationError struct {
	DeviceError
	Field    string
	Expected interface{}
	Actual   interface{}
}

// NewValidationError creates a new validation error
func NewValidationError(field string, expected, actual interface{}) *ValidationError {
	return &ValidationError{
		DeviceError: DeviceError{
			Op:       "validation",
			Err:      fmt.Errorf("validation failed"),
			Severity: SeverityWarning,
			Code:     CodeValidation,
		},
		Field:    field,
		Expected: expected,
		Actual:   actual,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Field '%s': expected %v, got %v",
		e.Severity, e.Field, e.Expected, e.Actual)
}
