// Package guidance implements the ascent and circularization decision logic:
// the gravity-turn pitch program, SRB staging debounce, apoapsis targeting,
// and the vis-viva burn planner. Everything here is pure computation over
// telemetry snapshots; issuing the resulting commands is the mission
// sequencer's job. Keeping the state transitions free of I/O makes each
// property testable in isolation.
package guidance

import "github.com/ajmwagar/betterjeb/internal/telemetry"

// AscentConfig holds the pitch-program and exit thresholds, in meters.
type AscentConfig struct {
	// TurnStartAlt is the altitude where the gravity turn begins.
	TurnStartAlt float64

	// TurnEndAlt is the altitude where the vehicle reaches horizontal.
	TurnEndAlt float64

	// TargetAltitude is the desired apoapsis. The powered ascent phase ends
	// when apoapsis reaches 90% of it.
	TargetAltitude float64

	// PitchHysteresis suppresses attitude commands that would change the
	// turn angle by no more than this many degrees.
	PitchHysteresis float64
}

// AscentState is the gravity-turn state carried across ticks. It is owned by
// a single loop and mutated once per Step.
type AscentState struct {
	// TurnAngle is the current commanded turn away from vertical, in
	// degrees within [0, 90].
	TurnAngle float64

	// SRBSeparated records that the staging command has been issued. It
	// transitions false to true exactly once.
	SRBSeparated bool

	// SRBFuelSeenPositive records that a resolved fuel reading above zero
	// has been observed. The fuel stream can report an uninitialized zero
	// before the subscription stabilizes, so separation is armed only after
	// this flag is set.
	SRBFuelSeenPositive bool
}

// PitchCommand is an attitude target in degrees.
type PitchCommand struct {
	Pitch   float64
	Heading float64
}

// AscentDecision is what one telemetry tick asks of the vehicle. Fields are
// independent: any subset may be set on the same tick.
type AscentDecision struct {
	// Pitch is a new attitude target, or nil when the hysteresis suppressed
	// the update or the altitude reading failed.
	Pitch *PitchCommand

	// Stage requests SRB separation. Set at most once over the life of the
	// state.
	Stage bool

	// Done reports that apoapsis reached 90% of the target and the powered
	// ascent phase is over.
	Done bool
}

// launchHeading is the fixed ascent azimuth in degrees (due east).
const launchHeading = 90.0

// Step advances the ascent state machine by one telemetry tick. Each
// decision is gated on its own reading only: a failed altitude reading skips
// the pitch update but not the staging check, and so on. A failed reading is
// "no information this tick", never a zero.
func (s *AscentState) Step(cfg AscentConfig, snap telemetry.Snapshot) AscentDecision {
	var d AscentDecision

	if alt := snap.Altitude; alt.Ok() {
		if cmd, ok := s.updateTurnAngle(cfg, alt.Value); ok {
			d.Pitch = &cmd
		}
	}

	if fuel := snap.SRBFuel; fuel.Ok() && !s.SRBSeparated {
		if !s.SRBFuelSeenPositive && fuel.Value > 0 {
			s.SRBFuelSeenPositive = true
		}
		if s.SRBFuelSeenPositive && fuel.Value <= 0 {
			s.SRBSeparated = true
			d.Stage = true
		}
	}

	if apo := snap.Apoapsis; apo.Ok() && apo.Value >= cfg.TargetAltitude*0.9 {
		d.Done = true
	}

	return d
}

// updateTurnAngle runs the pitch program for the given altitude. It returns
// the attitude command to issue and whether one is due. The turn angle only
// moves when the change exceeds the hysteresis, so re-running with an
// unchanged altitude emits nothing.
func (s *AscentState) updateTurnAngle(cfg AscentConfig, altitude float64) (PitchCommand, bool) {
	if altitude <= cfg.TurnStartAlt || altitude >= cfg.TurnEndAlt {
		return PitchCommand{}, false
	}

	frac := (altitude - cfg.TurnStartAlt) / (cfg.TurnEndAlt - cfg.TurnStartAlt)
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	newAngle := frac * 90

	if abs(newAngle-s.TurnAngle) <= cfg.PitchHysteresis {
		return PitchCommand{}, false
	}

	s.TurnAngle = newAngle
	return PitchCommand{Pitch: 90 - newAngle, Heading: launchHeading}, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
