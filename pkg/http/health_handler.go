package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status              string    `json:"status"` // "healthy" or "degraded"
	Timestamp           time.Time `json:"timestamp"`
	Uptime              string    `json:"uptime"`
	Updated             bool      `json:"updated"`
	LinkConnected       bool      `json:"link_connected"`
	LastSync            string    `json:"last_sync"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	SuccessCount        int       `json:"success_count"`
	ErrorCount          int       `json:"error_count"`
	Version             string    `json:"version,omitempty"`
}

// HealthChecker provides the backend health
type HealthChecker interface {
	Status() string
	ConsecutiveFailures() int
	LastSuccess() time.Time
	Counts() (successes, failures int)
}

// Indicators are the two flags the screen shows
type Indicators interface {
	IsUpdated() bool
	IsLinkUp() bool
}

// HealthHandler serves /health
type HealthHandler struct {
	startTime  time.Time
	checker    HealthChecker
	indicators Indicators
	version    string
	now        func() time.Time
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(checker HealthChecker, indicators Indicators, version string) *HealthHandler {
	return &HealthHandler{
		startTime:  time.Now(),
		checker:    checker,
		indicators: indicators,
		version:    version,
		now:        time.Now,
	}
}

// ServeHTTP implements http.Handler for /health. Degraded still answers 200.
func (hh *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, hh.healthStatus())
}

func (hh *HealthHandler) healthStatus() HealthStatus {
	now := hh.now()
	successes, failures := hh.checker.Counts()

	status := HealthStatus{
		Status:              hh.checker.Status(),
		Timestamp:           now,
		Uptime:              formatDuration(now.Sub(hh.startTime)),
		Updated:             hh.indicators.IsUpdated(),
		LinkConnected:       hh.indicators.IsLinkUp(),
		LastSync:            formatAgo(now, hh.checker.LastSuccess()),
		ConsecutiveFailures: hh.checker.ConsecutiveFailures(),
		SuccessCount:        successes,
		ErrorCount:          failures,
		Version:             hh.version,
	}
	if !status.LinkConnected {
		status.Status = "degraded"
	}
	return status
}

func formatAgo(now, then time.Time) string {
	if then.IsZero() {
		return "never"
	}
	since := now.Sub(then)
	switch {
	case since < time.Minute:
		return fmt.Sprintf("%d seconds ago", int(since.Seconds()))
	case since < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(since.Minutes()))
	default:
		return fmt.Sprintf("%d hours ago", int(since.Hours()))
	}
}

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours %d minutes", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%d days %d hours", int(d.Hours())/24, int(d.Hours())%24)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}
