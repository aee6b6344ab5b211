package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// TestAPIErrorCreation tests creating APIError
func TestAPIErrorCreation(t *testing.T) {
	apiErr := NewAPIError("upload measurements", fmt.Errorf("unexpected status"), "api/measure/set", 500)

	if apiErr.Route != "api/measure/set" {
		t.Errorf("Expected Route 'api/measure/set', got '%s'", apiErr.Route)
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("Expected StatusCode 500, got %d", apiErr.StatusCode)
	}
	if apiErr.Code != CodeAPI {
		t.Errorf("Expected Code %d, got %d", CodeAPI, apiErr.Code)
	}
	if !strings.Contains(apiErr.Error(), "HTTP 500") {
		t.Errorf("Expected status in message, got %s", apiErr.Error())
	}
}

// TestAuthErrorCreation tests creating AuthError
func TestAuthErrorCreation(t *testing.T) {
	authErr := NewAuthError(fmt.Errorf("HTTP 401"), "alice", 3)

	if authErr.Attempts != 3 {
		t.Errorf("Expected Attempts 3, got %d", authErr.Attempts)
	}
	if authErr.Severity != SeverityError {
		t.Errorf("Expected severity ERROR, got %s", authErr.Severity)
	}
	if !strings.Contains(authErr.Error(), "'alice'") {
		t.Errorf("Expected username in message, got %s", authErr.Error())
	}
}

// TestErrorUnwrapping tests error unwrapping
func TestErrorUnwrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	storageErr := NewStorageError("commit", baseErr, 100)

	if errors.Unwrap(storageErr) != baseErr {
		t.Error("Expected to unwrap to base error")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", storageErr), baseErr) {
		t.Error("Expected errors.Is to reach the base error through wrapping")
	}
}

// TestErrorTypeAssertion tests type assertion for error handling
func TestErrorTypeAssertion(t *testing.T) {
	var err error = fmt.Errorf("sync: %w", NewConnectivityError("synchronize room", "wlan0"))

	var linkErr *ConnectivityError
	if !errors.As(err, &linkErr) {
		t.Fatal("Expected errors.As to find ConnectivityError")
	}
	if linkErr.Interface != "wlan0" {
		t.Errorf("Expected Interface 'wlan0', got '%s'", linkErr.Interface)
	}
}

func TestSeverityString(t *testing.T) {
	tests := map[ErrorSeverity]string{
		SeverityInfo:      "INFO",
		SeverityWarning:   "WARNING",
		SeverityError:     "ERROR",
		SeverityCritical:  "CRITICAL",
		ErrorSeverity(42): "UNKNOWN",
	}
	for severity, want := range tests {
		if got := severity.String(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"config", NewConfigError("load", fmt.Errorf("bad"), "api.address"), false},
		{"storage is critical", NewStorageError("commit", fmt.Errorf("disk"), 0), false},
		{"api", NewAPIError("login", fmt.Errorf("x"), "api/user/login", 401), true},
		{"sensor", NewSensorError("read", fmt.Errorf("nack"), "hdc1080"), true},
		{"untyped", fmt.Errorf("plain"), true},
	}
	for _, tt := range tests {
		if got := IsRecoverable(tt.err); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestGetDiagnosticCode(t *testing.T) {
	if code := GetDiagnosticCode(nil); code != 0 {
		t.Errorf("Expected 0 for nil, got %d", code)
	}
	if code := GetDiagnosticCode(NewPairingError("listen", fmt.Errorf("bad json"), "")); code != CodePairing {
		t.Errorf("Expected %d, got %d", CodePairing, code)
	}
	if code := GetDiagnosticCode(fmt.Errorf("plain")); code != CodeUnknown {
		t.Errorf("Expected %d, got %d", CodeUnknown, code)
	}
}

type recordingPublisher struct {
	codes    []int
	messages []string
}

func (p *recordingPublisher) PublishDiagnostic(ctx context.Context, code int, message string) error {
	p.codes = append(p.codes, code)
	p.messages = append(p.messages, message)
	return nil
}

func TestErrorHandlerPublishesDiagnostics(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewErrorHandler(pub)

	h.Handle(context.Background(), nil)
	h.Handle(context.Background(), NewAPIError("set room active", fmt.Errorf("status"), "api/room/changeStatusActivation", 403))
	h.Handle(context.Background(), fmt.Errorf("plain failure"))

	if len(pub.codes) != 2 {
		t.Fatalf("Expected 2 diagnostics, got %d", len(pub.codes))
	}
	if pub.codes[0] != CodeAPI || pub.codes[1] != CodeUnknown {
		t.Errorf("Expected codes [%d %d], got %v", CodeAPI, CodeUnknown, pub.codes)
	}
	if !strings.Contains(pub.messages[0], "HTTP 403") {
		t.Errorf("Expected status in diagnostic, got %s", pub.messages[0])
	}
}

func TestErrorHandlerWithoutPublisher(t *testing.T) {
	h := NewErrorHandler(nil)
	h.Handle(context.Background(), NewMQTTError("publish", fmt.Errorf("timeout"), "localhost:1883"))
}
