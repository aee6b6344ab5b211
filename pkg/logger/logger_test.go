package logger

import "testing"

func TestShouldLog(t *testing.T) {
	tests := []struct {
		current string
		message string
		want    bool
	}{
		{LogLevelInfo, LogLevelError, true},
		{LogLevelInfo, LogLevelInfo, true},
		{LogLevelInfo, LogLevelDebug, false},
		{LogLevelError, LogLevelWarn, false},
		{LogLevelTrace, LogLevelTrace, true},
		{"verbose", LogLevelTrace, true},
	}

	for _, tt := range tests {
		if got := shouldLog(tt.current, tt.message); got != tt.want {
			t.Errorf("shouldLog(%q, %q): expected %v, got %v", tt.current, tt.message, tt.want, got)
		}
	}
}

func TestIsDebugEnabled(t *testing.T) {
	saved := GlobalLogging
	defer func() { GlobalLogging = saved }()

	GlobalLogging = nil
	if IsDebugEnabled() {
		t.Error("Expected debug disabled without configuration")
	}

	GlobalLogging = &LoggingConfig{Level: "DEBUG"}
	if !IsDebugEnabled() {
		t.Error("Expected debug enabled for level DEBUG")
	}
}

func TestMockLoggerRecordsFormattedMessages(t *testing.T) {
	l := NewMockLogger()
	l.LogWarn("username truncated to %d characters", 20)

	if !l.HasWarnMessage() {
		t.Fatal("Expected a warning to be recorded")
	}
	if !l.Contains("truncated to 20") {
		t.Errorf("Expected formatted message, got %v", l.WarnMessages)
	}

	l.Reset()
	if l.HasWarnMessage() || l.Contains("truncated") {
		t.Error("Expected no messages after Reset")
	}
}
