// Package mission runs the launch sequence: it wires telemetry snapshots
// through the guidance decision logic and issues the resulting commands to
// the craft. Control flows strictly forward through the phases; there is no
// retry or correction pass after the circularization burn.
package mission

// Phase is one stage of the launch sequence.
type Phase string

const (
	PhasePrelaunch Phase = "prelaunch"
	PhaseCountdown Phase = "countdown"
	PhaseAscent    Phase = "ascent"
	PhaseTrim      Phase = "trim_apoapsis"
	PhaseCoast     Phase = "coast"
	PhasePlan      Phase = "plan_burn"
	PhaseBurn      Phase = "burn"
	PhaseComplete  Phase = "complete"
)

// Phases lists every phase in execution order.
func Phases() []string {
	return []string{
		string(PhasePrelaunch),
		string(PhaseCountdown),
		string(PhaseAscent),
		string(PhaseTrim),
		string(PhaseCoast),
		string(PhasePlan),
		string(PhaseBurn),
		string(PhaseComplete),
	}
}
