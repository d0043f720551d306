package guidance

import (
	"errors"
	"testing"

	"github.com/gonum/floats"

	"github.com/ajmwagar/betterjeb/internal/telemetry"
)

func testAscentConfig() AscentConfig {
	return AscentConfig{
		TurnStartAlt:    250,
		TurnEndAlt:      45000,
		TargetAltitude:  74000,
		PitchHysteresis: 0.5,
	}
}

func okSnap(alt, apo, fuel float64) telemetry.Snapshot {
	return telemetry.Snapshot{
		UT:       telemetry.Reading{Value: 100},
		Apoapsis: telemetry.Reading{Value: apo},
		Altitude: telemetry.Reading{Value: alt},
		SRBFuel:  telemetry.Reading{Value: fuel},
	}
}

// TestPitchProgram verifies turn_angle = 90 * (alt - start) / (end - start)
// across the turn window, clamped to [0, 90].
func TestPitchProgram(t *testing.T) {
	cfg := testAscentConfig()
	tests := []struct {
		name      string
		altitude  float64
		wantAngle float64
		wantCmd   bool
	}{
		{"below turn start", 100, 0, false},
		{"at turn start", 250, 0, false},
		{"just inside window", 500, 90 * (500 - 250) / (45000 - 250), true},
		{"mid window", 22625, 90 * (22625 - 250) / (45000 - 250), true},
		{"near end", 44000, 90 * (44000 - 250) / (45000 - 250), true},
		{"at turn end", 45000, 0, false},
		{"above turn end", 60000, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state AscentState
			d := state.Step(cfg, okSnap(tt.altitude, 0, 10))
			if (d.Pitch != nil) != tt.wantCmd {
				t.Fatalf("Step(alt=%v) pitch command = %v, want %v", tt.altitude, d.Pitch != nil, tt.wantCmd)
			}
			if !tt.wantCmd {
				return
			}
			if !floats.EqualWithinAbs(state.TurnAngle, tt.wantAngle, 1e-9) {
				t.Errorf("TurnAngle = %v, want %v", state.TurnAngle, tt.wantAngle)
			}
			if !floats.EqualWithinAbs(d.Pitch.Pitch, 90-tt.wantAngle, 1e-9) {
				t.Errorf("commanded pitch = %v, want %v", d.Pitch.Pitch, 90-tt.wantAngle)
			}
			if d.Pitch.Heading != 90 {
				t.Errorf("commanded heading = %v, want 90", d.Pitch.Heading)
			}
		})
	}
}

// TestPitchHysteresis verifies that re-running with an unchanged altitude
// emits no command and leaves the angle unchanged, and that changes below
// the threshold are suppressed.
func TestPitchHysteresis(t *testing.T) {
	cfg := testAscentConfig()
	var state AscentState

	d := state.Step(cfg, okSnap(10000, 0, 10))
	if d.Pitch == nil {
		t.Fatal("first step at 10000m should emit a pitch command")
	}
	angle := state.TurnAngle

	// Same altitude: idempotent.
	d = state.Step(cfg, okSnap(10000, 0, 10))
	if d.Pitch != nil {
		t.Error("unchanged altitude emitted a spurious pitch command")
	}
	if state.TurnAngle != angle {
		t.Errorf("TurnAngle drifted from %v to %v", angle, state.TurnAngle)
	}

	// A tiny climb moves the raw angle by well under 0.5 degrees.
	d = state.Step(cfg, okSnap(10050, 0, 10))
	if d.Pitch != nil {
		t.Error("sub-hysteresis change emitted a pitch command")
	}

	// A large climb must move it.
	d = state.Step(cfg, okSnap(15000, 0, 10))
	if d.Pitch == nil {
		t.Error("super-hysteresis change emitted no pitch command")
	}
}

// TestStagingDebounce verifies the exactly-once separation policy: an
// uninitialized zero before any positive reading must not fire.
func TestStagingDebounce(t *testing.T) {
	cfg := testAscentConfig()
	var state AscentState

	// Uninitialized zero first: must not stage.
	if d := state.Step(cfg, okSnap(1000, 0, 0)); d.Stage {
		t.Fatal("staged on the first uninitialized zero reading")
	}
	if state.SRBFuelSeenPositive {
		t.Fatal("zero reading armed the separation flag")
	}

	// Positive fuel arms the check.
	if d := state.Step(cfg, okSnap(1000, 0, 800)); d.Stage {
		t.Fatal("staged while fuel remained")
	}
	if !state.SRBFuelSeenPositive {
		t.Fatal("positive reading did not arm the separation flag")
	}

	// Depleted: stage exactly once.
	d := state.Step(cfg, okSnap(1000, 0, 0))
	if !d.Stage {
		t.Fatal("did not stage on depletion after a positive reading")
	}
	if !state.SRBSeparated {
		t.Fatal("SRBSeparated not set after staging")
	}

	// Further zeros never stage again.
	for i := 0; i < 3; i++ {
		if d := state.Step(cfg, okSnap(1000, 0, 0)); d.Stage {
			t.Fatal("staged a second time")
		}
	}
}

// TestAscentExit verifies the phase ends at 90% of the target apoapsis.
func TestAscentExit(t *testing.T) {
	cfg := testAscentConfig()
	var state AscentState

	if d := state.Step(cfg, okSnap(30000, 66599, 0)); d.Done {
		t.Error("exited below 0.9x target apoapsis")
	}
	if d := state.Step(cfg, okSnap(30000, 66600, 0)); !d.Done {
		t.Error("did not exit at 0.9x target apoapsis")
	}
}

// TestPerReadingGating verifies that a failed value only skips its own
// decision: decisions on the healthy readings still run.
func TestPerReadingGating(t *testing.T) {
	cfg := testAscentConfig()
	readErr := errors.New("stream decode failed")

	t.Run("failed altitude keeps staging and exit alive", func(t *testing.T) {
		var state AscentState
		state.SRBFuelSeenPositive = true
		snap := telemetry.Snapshot{
			Apoapsis: telemetry.Reading{Value: 70000},
			Altitude: telemetry.Reading{Err: readErr},
			SRBFuel:  telemetry.Reading{Value: 0},
		}
		d := state.Step(cfg, snap)
		if d.Pitch != nil {
			t.Error("pitch decision ran on a failed altitude reading")
		}
		if !d.Stage {
			t.Error("staging decision was blocked by an unrelated failure")
		}
		if !d.Done {
			t.Error("exit decision was blocked by an unrelated failure")
		}
	})

	t.Run("failed fuel keeps pitch alive and never stages", func(t *testing.T) {
		var state AscentState
		state.SRBFuelSeenPositive = true
		snap := telemetry.Snapshot{
			Apoapsis: telemetry.Reading{Value: 100},
			Altitude: telemetry.Reading{Value: 10000},
			SRBFuel:  telemetry.Reading{Err: readErr},
		}
		d := state.Step(cfg, snap)
		if d.Pitch == nil {
			t.Error("pitch decision was blocked by an unrelated failure")
		}
		if d.Stage {
			t.Error("staged on a failed fuel reading")
		}
	})

	t.Run("all failed is a no-op tick", func(t *testing.T) {
		var state AscentState
		snap := telemetry.Snapshot{
			Apoapsis: telemetry.Reading{Err: readErr},
			Altitude: telemetry.Reading{Err: readErr},
			SRBFuel:  telemetry.Reading{Err: readErr},
		}
		d := state.Step(cfg, snap)
		if d.Pitch != nil || d.Stage || d.Done {
			t.Errorf("fully-failed snapshot produced decisions: %+v", d)
		}
	})
}
