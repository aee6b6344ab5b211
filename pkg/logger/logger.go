package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel constants
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

// levelRank orders levels from least to most verbose
var levelRank = map[string]int{
	LogLevelError: 0,
	LogLevelWarn:  1,
	LogLevelInfo:  2,
	LogLevelDebug: 3,
	LogLevelTrace: 4,
}

// LoggingConfig represents the logging section of the device configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Global logging configuration
var GlobalLogging *LoggingConfig

// Setup installs the configuration globally and redirects the std logger
// to the configured file (stdout when empty or unopenable).
// The returned closer releases the file; it is a no-op for stdout.
func Setup(config *LoggingConfig) io.Closer {
	if config.Level == "" {
		config.Level = LogLevelInfo
	}
	GlobalLogging = config

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if config.File == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	// 0600: the log may contain the local IP and backend routes
	file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		log.SetOutput(os.Stdout)
		log.Printf("⚠️ Failed to open log file %s: %v", config.File, err)
		return nopCloser{}
	}
	log.SetOutput(file)
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// shouldLog checks if a message should be logged based on current level
func shouldLog(currentLevel, messageLevel string) bool {
	current, ok := levelRank[currentLevel]
	if !ok {
		return true
	}
	message, ok := levelRank[messageLevel]
	if !ok {
		return true
	}
	return message <= current
}

func enabled(messageLevel string) bool {
	return GlobalLogging != nil && shouldLog(strings.ToLower(GlobalLogging.Level), messageLevel)
}

// LogStartup logs startup messages that should always be visible regardless of log level
func LogStartup(format string, args ...interface{}) {
	log.Printf("🔧 "+format, args...)
}

// Helper functions for global logging
func LogError(format string, args ...interface{}) {
	if enabled(LogLevelError) {
		log.Printf("❌ "+format, args...)
	}
}

func LogWarn(format string, args ...interface{}) {
	if enabled(LogLevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

func LogInfo(format string, args ...interface{}) {
	if enabled(LogLevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

func LogDebug(format string, args ...interface{}) {
	if enabled(LogLevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

func LogTrace(format string, args ...interface{}) {
	if enabled(LogLevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return enabled(LogLevelDebug)
}

type lineWriter func(line string)

func (w lineWriter) Write(p []byte) (int, error) {
	w(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// DebugWriter logs every write as one debug line, for libraries that
// take an io.Writer
func DebugWriter() io.Writer {
	return lineWriter(func(line string) { LogDebug("%s", line) })
}
