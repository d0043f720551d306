package opsserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ajmwagar/betterjeb/internal/auth"
	"github.com/ajmwagar/betterjeb/internal/flightstate"
)

func testServer(t *testing.T, authCfg auth.Config, store *flightstate.Store) http.Handler {
	t.Helper()
	cfg := Config{
		Addr:              ":0",
		StreamMaxPerIP:    2,
		KeepaliveInterval: time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, authCfg, store, logger).HTTPServer().Handler
}

func TestHealthz(t *testing.T) {
	h := testServer(t, auth.Config{}, flightstate.NewStore())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	store := flightstate.NewStore()
	h := testServer(t, auth.Config{}, store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before telemetry: status = %d, want 503", rec.Code)
	}

	store.Set(&flightstate.Status{Phase: "ascent", UpdatedAt: time.Now()})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("after telemetry: status = %d, want 200", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	store := flightstate.NewStore()
	h := testServer(t, auth.Config{}, store)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("empty store: status = %d, want 503", rec.Code)
	}

	store.Set(&flightstate.Status{
		Phase:     "coast",
		UT:        4321,
		Altitude:  70600,
		Apoapsis:  74000,
		UpdatedAt: time.Now(),
	})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got flightstate.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Phase != "coast" || got.Apoapsis != 74000 {
		t.Errorf("body = %+v", got)
	}
}

func TestAuthEnforcement(t *testing.T) {
	store := flightstate.NewStore()
	store.Set(&flightstate.Status{Phase: "ascent", UpdatedAt: time.Now()})
	h := testServer(t, auth.Config{Enabled: true, Token: "launch-key"}, store)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
	}{
		{"status without token", "/api/v1/status", "", http.StatusUnauthorized},
		{"status with wrong token", "/api/v1/status", "Bearer nope", http.StatusUnauthorized},
		{"status with malformed header", "/api/v1/status", "launch-key", http.StatusUnauthorized},
		{"status with token", "/api/v1/status", "Bearer launch-key", http.StatusOK},
		{"healthz stays public", "/healthz", "", http.StatusOK},
		{"readyz stays public", "/readyz", "", http.StatusOK},
		{"metrics stays public", "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestFlightStreamSendsStatus(t *testing.T) {
	store := flightstate.NewStore()
	store.Set(&flightstate.Status{Phase: "burn", UT: 5120, UpdatedAt: time.Now()})
	h := testServer(t, auth.Config{}, store)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream/flight")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	// The first event carries the current status immediately.
	buf := make([]byte, 4096)
	n, err := resp.Body.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("read: %v", err)
	}
	event := string(buf[:n])
	if !strings.HasPrefix(event, "data: ") {
		t.Fatalf("event = %q, want an SSE data frame", event)
	}
	if !strings.Contains(event, `"phase":"burn"`) {
		t.Errorf("event = %q, want the published phase", event)
	}
}

func TestStreamLimiter(t *testing.T) {
	l := newStreamLimiter(2)

	if !l.acquire("10.0.0.1") || !l.acquire("10.0.0.1") {
		t.Fatal("first two connections rejected")
	}
	if l.acquire("10.0.0.1") {
		t.Error("third connection from the same IP admitted")
	}
	if !l.acquire("10.0.0.2") {
		t.Error("different IP rejected while under its own limit")
	}

	l.release("10.0.0.1")
	if !l.acquire("10.0.0.1") {
		t.Error("released slot not reusable")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		trustProxy bool
		want       string
	}{
		{"host port split", "192.168.1.9:54321", "", false, "192.168.1.9"},
		{"xff ignored when untrusted", "192.168.1.9:54321", "203.0.113.7", false, "192.168.1.9"},
		{"xff honored when trusted", "192.168.1.9:54321", "203.0.113.7", true, "203.0.113.7"},
		{"xff first entry wins", "192.168.1.9:54321", "203.0.113.7, 10.0.0.1", true, "203.0.113.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
