package opsserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ajmwagar/betterjeb/internal/flightstate"
)

// streamHandler serves the SSE flight stream.
//
// Message format:
//
//	data: {"phase":"ascent","ut":...,"altitude_m":...}\n\n
//
// A fresh status message is sent whenever the published flight status
// changes; keep-alive comments (":\n\n") are sent every KeepaliveInterval to
// hold idle connections open.
type streamHandler struct {
	store   *flightstate.Store
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

func newStreamHandler(store *flightstate.Store, cfg Config, logger *slog.Logger) *streamHandler {
	return &streamHandler{
		store:   store,
		config:  cfg,
		limiter: newStreamLimiter(cfg.StreamMaxPerIP),
		logger:  logger,
	}
}

// handleFlight serves GET /api/v1/stream/flight.
func (h *streamHandler) handleFlight(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ip := clientIP(r, h.config.TrustProxyHeaders)
	if !h.limiter.acquire(ip) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}
	defer h.limiter.release(ip)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Debug("flight stream connected", "remote_ip", ip)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	var lastSent time.Time
	send := func() error {
		st := h.store.Get()
		if st == nil || !st.UpdatedAt.After(lastSent) {
			return nil
		}
		lastSent = st.UpdatedAt
		data, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		flusher.Flush()
		return nil
	}

	if err := send(); err != nil {
		h.logger.Debug("flight stream write failed", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("flight stream disconnected", "remote_ip", ip)
			return
		case <-ticker.C:
			if err := send(); err != nil {
				h.logger.Debug("flight stream write failed", "error", err)
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				h.logger.Debug("flight stream keepalive failed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
