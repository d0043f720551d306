// Package opsserver exposes the read-only observation surface while the
// mission flies: health and readiness probes, Prometheus metrics, the latest
// flight status as JSON, and a live SSE flight stream. The guidance loop
// never depends on this server; it can be disabled entirely.
package opsserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ajmwagar/betterjeb/internal/auth"
	"github.com/ajmwagar/betterjeb/internal/flightstate"
	"github.com/ajmwagar/betterjeb/internal/health"
	"github.com/ajmwagar/betterjeb/internal/metrics"
)

// Config holds the ops server settings.
type Config struct {
	Addr              string
	StreamMaxPerIP    int
	KeepaliveInterval time.Duration
	TrustProxyHeaders bool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured ops HTTP server.
func NewServer(cfg Config, authCfg auth.Config, store *flightstate.Store, logger *slog.Logger) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", health.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", health.Readyz(store)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/status", statusHandler(store)).Methods(http.MethodGet)

	stream := newStreamHandler(store, cfg, logger)
	r.HandleFunc("/api/v1/stream/flight", stream.handleFlight).Methods(http.MethodGet)

	// Middleware chain: metrics -> logging -> auth -> router.
	var handler http.Handler = r
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control
// (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// statusHandler serves the latest published flight status.
func statusHandler(store *flightstate.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := store.Get()
		w.Header().Set("Content-Type", "application/json")
		if st == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": "no flight status yet"})
			return
		}
		json.NewEncoder(w).Encode(st)
	}
}

// probePath returns true for health/readiness probe paths that should not
// log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "ops",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
