package guidance

import "github.com/ajmwagar/betterjeb/internal/telemetry"

// ApoapsisReached reports whether the resolved apoapsis reading satisfies the
// target. A failed reading returns false: the tick is retried, never treated
// as satisfying the exit condition.
func ApoapsisReached(snap telemetry.Snapshot, target float64) bool {
	return snap.Apoapsis.Ok() && snap.Apoapsis.Value >= target
}

// CoastComplete reports whether the resolved altitude reading has cleared the
// atmosphere-exit threshold. All other readings and all read failures are
// ignored; the coast gate retries indefinitely.
func CoastComplete(snap telemetry.Snapshot, exitAlt float64) bool {
	return snap.Altitude.Ok() && snap.Altitude.Value >= exitAlt
}
