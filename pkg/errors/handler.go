package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"air-analyzer/pkg/logger"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	diagnosticPublisher DiagnosticPublisher
}

// DiagnosticPublisher interface for publishing diagnostics
type DiagnosticPublisher interface {
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

type coded interface {
	error
	Base() *DeviceError
}

// NewErrorHandler creates a new error handler. publisher may be nil.
func NewErrorHandler(publisher DiagnosticPublisher) *ErrorHandler {
	return &ErrorHandler{
		diagnosticPublisher: publisher,
	}
}

// Handle logs the error according to its severity and publishes a diagnostic
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var typed coded
	if !stderrors.As(err, &typed) {
		logger.LogError("❌ Untyped Error: %v", err)
		h.publish(ctx, CodeUnknown, err.Error())
		return
	}

	base := typed.Base()
	label := label(typed)
	switch base.Severity {
	case SeverityCritical:
		logger.LogError("🔴 CRITICAL %s: %s", label, err.Error())
	case SeverityError:
		logger.LogError("%s: %s", label, err.Error())
	case SeverityWarning:
		logger.LogWarn("%s: %s", label, err.Error())
	default:
		logger.LogInfo("%s: %s", label, err.Error())
	}

	h.publish(ctx, base.Code, summary(typed))
}

func (h *ErrorHandler) publish(ctx context.Context, code int, message string) {
	if h.diagnosticPublisher == nil {
		return
	}
	if err := h.diagnosticPublisher.PublishDiagnostic(ctx, code, message); err != nil {
		logger.LogDebug("Failed to publish diagnostic %d: %v", code, err)
	}
}

func label(err coded) string {
	switch err.(type) {
	case *ConnectivityError:
		return "Link"
	case *AuthError:
		return "Login"
	case *APIError:
		return "Backend API"
	case *SensorError:
		return "Sensor"
	case *PairingError:
		return "Pairing"
	case *StorageError:
		return "Storage"
	case *MQTTError:
		return "MQTT"
	case *ConfigError:
		return "Configuration"
	case *ValidationError:
		return "Validation"
	default:
		return "Device"
	}
}

// summary is the short diagnostic message, without severity decoration
func summary(err coded) string {
	switch e := err.(type) {
	case *APIError:
		return fmt.Sprintf("%s %s: HTTP %d", e.Op, e.Route, e.StatusCode)
	case *AuthError:
		return fmt.Sprintf("login failed after %d attempt(s)", e.Attempts)
	case *SensorError:
		return fmt.Sprintf("%s on %s", e.Op, e.Driver)
	case *ConfigError:
		return fmt.Sprintf("config field '%s': %s", e.Field, e.Op)
	case *ValidationError:
		return fmt.Sprintf("validation failed for '%s'", e.Field)
	default:
		return err.Base().Op
	}
}

// IsRecoverable returns true if the error is recoverable
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	var cfg *ConfigError
	if stderrors.As(err, &cfg) {
		return false
	}

	var typed coded
	if stderrors.As(err, &typed) {
		return typed.Base().Severity != SeverityCritical
	}
	return true
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return 0
	}

	var typed coded
	if stderrors.As(err, &typed) {
		return typed.Base().Code
	}
	return CodeUnknown
}
