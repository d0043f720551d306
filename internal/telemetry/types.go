// Package telemetry models the streamed vehicle telemetry the guidance loop
// consumes. One Snapshot is produced per stream update; each of its values
// resolves independently as a success or a failure, so one bad value never
// blocks decisions that depend only on the good ones.
package telemetry

import (
	"context"
	"errors"
	"fmt"
)

// ErrStale marks a value that did not arrive in the current update. The
// reading carries no information for this tick; it is never substituted with
// a default or a previous value.
var ErrStale = errors.New("telemetry value stale or missing")

// Key identifies one subscribed scalar value.
type Key string

// Subscribed values.
const (
	KeyUT       Key = "ut"
	KeyApoapsis Key = "apoapsis_altitude"
	KeyAltitude Key = "mean_altitude"
	KeySRBFuel  Key = "srb_fuel"
)

// Reading is one independently-resolved value of a Snapshot.
type Reading struct {
	Value float64
	Err   error
}

// Ok reports whether the reading resolved successfully this tick.
func (r Reading) Ok() bool { return r.Err == nil }

func (r Reading) String() string {
	if r.Err != nil {
		return fmt.Sprintf("err(%v)", r.Err)
	}
	return fmt.Sprintf("%.2f", r.Value)
}

// Snapshot is the per-tick bundle of readings. Snapshots are ephemeral:
// produced by Source.Next, consumed by one guidance step, then discarded.
type Snapshot struct {
	UT       Reading
	Apoapsis Reading
	Altitude Reading
	SRBFuel  Reading
}

// Source delivers telemetry snapshots.
type Source interface {
	// Next blocks until one stream update arrives and returns it as a
	// Snapshot, or fails with a transport error. Per-value resolution
	// failures are reported inside the Snapshot, not here.
	Next(ctx context.Context) (Snapshot, error)
}

// ScalarSource delivers updates of a single subscribed value.
type ScalarSource interface {
	// Next blocks until the next value arrives, or fails with a transport
	// error.
	Next(ctx context.Context) (float64, error)

	// Close releases the subscription.
	Close() error
}
