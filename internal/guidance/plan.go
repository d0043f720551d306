package guidance

import (
	"errors"
	"math"
)

// g0 is the standard gravity used to convert specific impulse to effective
// exhaust velocity. The game reports Isp against 9.82 m/s^2.
const g0 = 9.82

// PlanInputs are the orbit and vehicle readings the planner needs, all in SI
// units: meters, kilograms, newtons, seconds.
type PlanInputs struct {
	Mu             float64 // gravitational parameter of the central body
	ApoapsisRadius float64 // apoapsis measured from the body's center
	SemiMajorAxis  float64 // of the current transfer orbit
	Thrust         float64 // available thrust
	Isp            float64 // specific impulse, seconds
	Mass           float64 // current vehicle mass
	UT             float64 // current universal time
	TimeToApoapsis float64 // seconds until apoapsis
}

// BurnPlan is the circularization burn schedule. Computed once, immutable,
// consumed read-only by the burn executor.
type BurnPlan struct {
	// Epoch is the universal time of the node: the apoapsis pass.
	Epoch float64

	// DeltaV is the prograde velocity change in m/s. May be non-positive
	// when the orbit is already circular or over-circularized.
	DeltaV float64

	// Duration is the full-throttle burn time in seconds.
	Duration float64
}

// Needed reports whether the plan calls for an actual burn. A non-positive
// delta-v yields a degenerate duration; executing it would command a
// negative-length burn, so the executor must treat the plan as a no-op.
func (p BurnPlan) Needed() bool {
	return p.DeltaV > 0 && p.Duration > 0
}

// Start is the universal time at which the engine should ignite so the burn
// straddles the node.
func (p BurnPlan) Start() float64 {
	return p.Epoch - p.Duration/2
}

var (
	errNoThrust = errors.New("guidance: available thrust must be positive")
	errNoIsp    = errors.New("guidance: specific impulse must be positive")
	errBadOrbit = errors.New("guidance: orbit radii must be positive")
)

// PlanCircularization computes the circularization burn at apoapsis.
//
// The delta-v follows from the vis-viva equation: the speed on the current
// transfer orbit at apoapsis is v1 = sqrt(mu*(2/r - 1/a)), the speed of a
// circular orbit at that radius is v2 = sqrt(mu/r), and the burn must make up
// the difference. The burn duration follows from the Tsiolkovsky rocket
// equation: with effective exhaust velocity ve = Isp*g0, the final mass is
// m1 = m0/exp(dv/ve), and at mass flow F/ve the engine takes (m0-m1)/(F/ve)
// seconds to expel the difference.
func PlanCircularization(in PlanInputs) (BurnPlan, error) {
	if in.ApoapsisRadius <= 0 || in.SemiMajorAxis <= 0 {
		return BurnPlan{}, errBadOrbit
	}
	if in.Thrust <= 0 {
		return BurnPlan{}, errNoThrust
	}
	if in.Isp <= 0 {
		return BurnPlan{}, errNoIsp
	}

	v1 := math.Sqrt(in.Mu * (2/in.ApoapsisRadius - 1/in.SemiMajorAxis))
	v2 := math.Sqrt(in.Mu / in.ApoapsisRadius)
	deltaV := v2 - v1

	ve := in.Isp * g0
	m1 := in.Mass / math.Exp(deltaV/ve)
	flowRate := in.Thrust / ve

	return BurnPlan{
		Epoch:    in.UT + in.TimeToApoapsis,
		DeltaV:   deltaV,
		Duration: (in.Mass - m1) / flowRate,
	}, nil
}
