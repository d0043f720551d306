// Package flightstate provides thread-safe access to the latest flight
// status. The mission loop publishes after every telemetry tick; the ops
// server reads for /api/v1/status, the SSE stream, and readiness.
package flightstate

import (
	"sync/atomic"
	"time"
)

// BurnSummary is the planned circularization burn, present once planning has
// run.
type BurnSummary struct {
	Epoch    float64 `json:"epoch"`
	DeltaV   float64 `json:"delta_v"`
	Duration float64 `json:"duration_s"`
}

// Status is one published view of the mission. Immutable after publication.
type Status struct {
	Phase        string       `json:"phase"`
	UT           float64      `json:"ut"`
	Altitude     float64      `json:"altitude_m"`
	Apoapsis     float64      `json:"apoapsis_m"`
	TurnAngle    float64      `json:"turn_angle_deg"`
	SRBSeparated bool         `json:"srb_separated"`
	Burn         *BurnSummary `json:"burn,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Store holds the most recent Status.
type Store struct {
	status atomic.Pointer[Status]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current status, or nil if none has been published.
func (s *Store) Get() *Status {
	return s.status.Load()
}

// Set atomically replaces the current status.
func (s *Store) Set(st *Status) {
	s.status.Store(st)
}

// AgeSeconds returns the age of the current status in seconds.
// Returns -1 if nothing has been published yet.
func (s *Store) AgeSeconds() float64 {
	st := s.status.Load()
	if st == nil {
		return -1
	}
	return time.Since(st.UpdatedAt).Seconds()
}
