// Package craft defines the capability interfaces the guidance program needs
// from the remote vehicle. Each interface is a narrow method contract over the
// kRPC proxy objects; implementations live in internal/ksp and hold a remote
// handle plus the shared connection. Consumers never see the transport.
package craft

import "context"

// Vector3 is a direction or position expressed in the reference frame that
// produced it. Components follow the kRPC convention (right, forward, up).
type Vector3 struct {
	X, Y, Z float64
}

// Control issues write-only commands to the vehicle. Commands are
// fire-and-forget: the vehicle applies them, nothing is retained locally.
type Control interface {
	// SetThrottle sets the main throttle. Level is clamped to [0, 1] by
	// implementations before transmission.
	SetThrottle(ctx context.Context, level float64) error

	// SetSAS enables or disables the stability assist system.
	SetSAS(ctx context.Context, enabled bool) error

	// SetRCS enables or disables the reaction control thrusters.
	SetRCS(ctx context.Context, enabled bool) error

	// ActivateNextStage triggers the next stage in the staging sequence.
	ActivateNextStage(ctx context.Context) error

	// AddManeuverNode creates a maneuver node at the given universal time
	// with the given delta-v split (m/s) in prograde/normal/radial.
	AddManeuverNode(ctx context.Context, epoch, prograde, normal, radial float64) (Node, error)
}

// Node is a planned maneuver created through Control.AddManeuverNode.
// A Node is only valid with the AutoPilot of the same connection.
type Node interface {
	// DeltaV reports the remaining delta-v of the node in m/s.
	DeltaV(ctx context.Context) (float64, error)
}

// AutoPilot steers the vehicle toward attitude targets.
type AutoPilot interface {
	// Engage takes control of the vehicle's attitude.
	Engage(ctx context.Context) error

	// Disengage releases attitude control.
	Disengage(ctx context.Context) error

	// TargetPitchAndHeading sets the attitude target in degrees.
	TargetPitchAndHeading(ctx context.Context, pitch, heading float64) error

	// OrientToNode switches the autopilot reference frame to the node's and
	// targets the prograde direction of the pending burn. It does not wait
	// for convergence; see Wait.
	OrientToNode(ctx context.Context, n Node) error

	// Wait blocks until the autopilot reports the vehicle settled on its
	// current target, or the context is cancelled.
	Wait(ctx context.Context) error
}

// Orbit exposes read-only orbital elements of the vehicle's current orbit.
type Orbit interface {
	// ApoapsisRadius is the apoapsis measured from the body's center, in m.
	ApoapsisRadius(ctx context.Context) (float64, error)

	// SemiMajorAxis of the current orbit, in m.
	SemiMajorAxis(ctx context.Context) (float64, error)

	// TimeToApoapsis in seconds.
	TimeToApoapsis(ctx context.Context) (float64, error)

	// GravitationalParameter of the body being orbited, in m^3/s^2.
	GravitationalParameter(ctx context.Context) (float64, error)
}

// Vessel exposes the vehicle properties the burn planner needs.
type Vessel interface {
	// Mass is the total vehicle mass in kg.
	Mass(ctx context.Context) (float64, error)

	// AvailableThrust is the maximum thrust of the active engines in N.
	AvailableThrust(ctx context.Context) (float64, error)

	// SpecificImpulse is the combined specific impulse in seconds.
	SpecificImpulse(ctx context.Context) (float64, error)
}

// Clock exposes universal time and time acceleration.
type Clock interface {
	// UT is the current universal time in seconds.
	UT(ctx context.Context) (float64, error)

	// WarpTo accelerates time until the given universal time, limited to the
	// given on-rails and physical warp rates.
	WarpTo(ctx context.Context, ut, railsRate, physicsRate float64) error
}
