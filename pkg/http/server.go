package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"air-analyzer/pkg/config"
	"air-analyzer/pkg/logger"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// StatusProvider returns a JSON-encodable snapshot of the device
type StatusProvider interface {
	Snapshot() interface{}
}

// SyncRequester queues a room synchronization for the device loop. It
// reports false when one is already pending.
type SyncRequester interface {
	RequestSync() bool
}

// Server is the local status server
type Server struct {
	router *mux.Router
	server *http.Server
}

// NewServer builds the router. metrics may be nil, which leaves /metrics
// unrouted.
func NewServer(settings config.HTTPSettings, health *HealthHandler, status StatusProvider, sync SyncRequester, metrics http.Handler) *Server {
	r := mux.NewRouter()
	r.Handle("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, status.Snapshot())
	}).Methods(http.MethodGet)
	r.HandleFunc("/sync", func(w http.ResponseWriter, _ *http.Request) {
		queued := sync.RequestSync()
		logger.LogInfo("🌐 Synchronization requested over HTTP (queued: %v)", queued)
		writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
	}).Methods(http.MethodPost)
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods(http.MethodGet)
	}
	r.HandleFunc("/", index).Methods(http.MethodGet)

	s := &Server{router: r}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Port),
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the router wrapped in access logging and panic recovery
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.LoggingHandler(logger.DebugWriter(), s.router),
	)
}

// Start serves until Shutdown
func (s *Server) Start() error {
	logger.LogInfo("🌐 Status server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html>
<head><title>Air Analyzer</title></head>
<body>
<h1>Air Analyzer</h1>
<ul>
<li><a href="/health">Health Check</a></li>
<li><a href="/status">Status</a></li>
<li><a href="/metrics">Metrics</a> (if enabled)</li>
</ul>
</body>
</html>`)
}
