// Package metrics exposes Prometheus instrumentation for the guidance
// program: telemetry flow, issued commands, and the mission's progress
// through its phases.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	telemetryUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "betterjeb_telemetry_updates_total",
			Help: "Total telemetry snapshots received.",
		},
	)

	telemetryFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betterjeb_telemetry_value_failures_total",
			Help: "Per-value telemetry resolution failures.",
		},
		[]string{"key"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betterjeb_commands_total",
			Help: "Commands issued to the vehicle.",
		},
		[]string{"kind"},
	)

	stagingEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "betterjeb_staging_events_total",
			Help: "Stage activation commands issued.",
		},
	)

	missionPhase = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "betterjeb_mission_phase",
			Help: "Current mission phase (1 for the active phase, 0 otherwise).",
		},
		[]string{"phase"},
	)

	turnAngleDegrees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "betterjeb_turn_angle_degrees",
			Help: "Current gravity-turn angle away from vertical.",
		},
	)

	apoapsisMeters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "betterjeb_apoapsis_meters",
			Help: "Latest resolved apoapsis altitude.",
		},
	)

	burnDeltaV = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "betterjeb_burn_delta_v",
			Help: "Planned circularization delta-v in m/s.",
		},
	)

	burnDurationSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "betterjeb_burn_duration_seconds",
			Help: "Planned circularization burn duration.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betterjeb_http_requests_total",
			Help: "Total number of ops HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "betterjeb_http_duration_seconds",
			Help:    "Ops HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		telemetryUpdatesTotal,
		telemetryFailuresTotal,
		commandsTotal,
		stagingEventsTotal,
		missionPhase,
		turnAngleDegrees,
		apoapsisMeters,
		burnDeltaV,
		burnDurationSeconds,
		httpRequestsTotal,
		httpDurationSeconds,
	)
}

// IncTelemetryUpdate counts one received snapshot.
func IncTelemetryUpdate() {
	telemetryUpdatesTotal.Inc()
}

// IncTelemetryFailure counts a per-value resolution failure.
func IncTelemetryFailure(key string) {
	telemetryFailuresTotal.WithLabelValues(key).Inc()
}

// IncCommand counts one issued vehicle command by kind ("throttle",
// "attitude", "stage", "node", "warp", ...).
func IncCommand(kind string) {
	commandsTotal.WithLabelValues(kind).Inc()
}

// IncStaging counts a stage activation.
func IncStaging() {
	stagingEventsTotal.Inc()
}

// SetPhase marks the named phase active and all others inactive.
func SetPhase(phase string, all []string) {
	for _, p := range all {
		v := 0.0
		if p == phase {
			v = 1.0
		}
		missionPhase.WithLabelValues(p).Set(v)
	}
}

// SetTurnAngle updates the gravity-turn angle gauge.
func SetTurnAngle(deg float64) {
	turnAngleDegrees.Set(deg)
}

// SetApoapsis updates the apoapsis gauge.
func SetApoapsis(m float64) {
	apoapsisMeters.Set(m)
}

// SetBurnPlan records the planned burn figures.
func SetBurnPlan(deltaV, duration float64) {
	burnDeltaV.Set(deltaV)
	burnDurationSeconds.Set(duration)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so SSE responses keep streaming
// through the middleware chain.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request count and duration for each ops request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.URL.Path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(r.URL.Path, r.Method).Observe(duration)
	})
}
