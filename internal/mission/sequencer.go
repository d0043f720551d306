package mission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ajmwagar/betterjeb/internal/config"
	"github.com/ajmwagar/betterjeb/internal/craft"
	"github.com/ajmwagar/betterjeb/internal/flightstate"
	"github.com/ajmwagar/betterjeb/internal/guidance"
	"github.com/ajmwagar/betterjeb/internal/metrics"
	"github.com/ajmwagar/betterjeb/internal/telemetry"
)

// Craft bundles the capability interfaces the sequencer drives.
type Craft struct {
	Control   craft.Control
	AutoPilot craft.AutoPilot
	Orbit     craft.Orbit
	Vessel    craft.Vessel
	Clock     craft.Clock
}

// TTAFactory opens the dedicated time-to-apoapsis stream for the burn wait.
type TTAFactory func(ctx context.Context) (telemetry.ScalarSource, error)

// Sequencer executes the launch from prelaunch checks to the end of the
// circularization burn. One Sequencer flies one mission; it is not reusable.
type Sequencer struct {
	craft   Craft
	source  telemetry.Source
	openTTA TTAFactory
	flight  config.FlightConfig
	burn    config.BurnConfig
	store   *flightstate.Store
	logger  *slog.Logger

	// sleep is real time.Sleep in flight, swappable in tests.
	sleep func(time.Duration)

	status flightstate.Status
}

// New creates a Sequencer. store may be nil when no ops surface is running.
func New(c Craft, source telemetry.Source, openTTA TTAFactory, flight config.FlightConfig, burn config.BurnConfig, store *flightstate.Store, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		craft:   c,
		source:  source,
		openTTA: openTTA,
		flight:  flight,
		burn:    burn,
		store:   store,
		logger:  logger,
		sleep:   time.Sleep,
	}
}

// Run flies the whole sequence. Any one-shot remote call failure is
// unrecoverable and returned; streamed telemetry failures are retried
// internally per value.
func (s *Sequencer) Run(ctx context.Context) error {
	s.logger.Info("planned flight parameters",
		"target_altitude_m", s.flight.TargetAltitude,
		"turn_start_alt_m", s.flight.TurnStartAlt,
		"turn_end_alt_m", s.flight.TurnEndAlt,
	)

	s.enterPhase(PhasePrelaunch)
	if err := s.prelaunch(ctx); err != nil {
		return fmt.Errorf("prelaunch: %w", err)
	}

	s.enterPhase(PhaseCountdown)
	countdown(s.logger, s.flight.CountdownSeconds, s.sleep)
	if err := s.launch(ctx); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	s.enterPhase(PhaseAscent)
	if err := s.runAscent(ctx); err != nil {
		return fmt.Errorf("ascent: %w", err)
	}

	s.enterPhase(PhaseTrim)
	if err := s.runTrim(ctx); err != nil {
		return fmt.Errorf("apoapsis trim: %w", err)
	}

	s.enterPhase(PhaseCoast)
	if err := s.runCoast(ctx); err != nil {
		return fmt.Errorf("coast: %w", err)
	}

	s.enterPhase(PhasePlan)
	plan, node, err := s.runPlan(ctx)
	if err != nil {
		return fmt.Errorf("burn planning: %w", err)
	}

	if node != nil {
		s.enterPhase(PhaseBurn)
		if err := s.executeBurn(ctx, plan, node); err != nil {
			return fmt.Errorf("burn: %w", err)
		}
	}

	s.enterPhase(PhaseComplete)
	s.logger.Info("launch complete")
	return nil
}

// prelaunch configures the vehicle for ascent: stability systems off, full
// throttle armed.
func (s *Sequencer) prelaunch(ctx context.Context) error {
	calls := []craft.BatchCall{
		{Name: "disable SAS", Do: func(ctx context.Context) error {
			return s.craft.Control.SetSAS(ctx, false)
		}},
		{Name: "disable RCS", Do: func(ctx context.Context) error {
			return s.craft.Control.SetRCS(ctx, false)
		}},
		{Name: "arm full throttle", Do: func(ctx context.Context) error {
			return s.craft.Control.SetThrottle(ctx, 1.0)
		}},
	}
	if err := craft.FirstBatchError(calls, craft.RunBatch(ctx, calls...)); err != nil {
		return err
	}
	metrics.IncCommand("throttle")
	s.logger.Info("pre-flight checks completed")
	return nil
}

// launch fires the first stage and hands attitude to the autopilot, pointed
// straight up.
func (s *Sequencer) launch(ctx context.Context) error {
	calls := []craft.BatchCall{
		{Name: "activate first stage", Do: func(ctx context.Context) error {
			return s.craft.Control.ActivateNextStage(ctx)
		}},
		{Name: "engage autopilot", Do: func(ctx context.Context) error {
			return s.craft.AutoPilot.Engage(ctx)
		}},
		{Name: "initial attitude", Do: func(ctx context.Context) error {
			return s.craft.AutoPilot.TargetPitchAndHeading(ctx, 90, 90)
		}},
	}
	if err := craft.FirstBatchError(calls, craft.RunBatch(ctx, calls...)); err != nil {
		return err
	}
	metrics.IncCommand("stage")
	metrics.IncCommand("attitude")
	return nil
}

// runAscent drives the gravity turn until apoapsis reaches 90% of target.
func (s *Sequencer) runAscent(ctx context.Context) error {
	var state guidance.AscentState
	cfg := guidance.AscentConfig{
		TurnStartAlt:    s.flight.TurnStartAlt,
		TurnEndAlt:      s.flight.TurnEndAlt,
		TargetAltitude:  s.flight.TargetAltitude,
		PitchHysteresis: s.flight.PitchHysteresis,
	}

	for {
		snap, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		s.recordReadings(snap)

		d := state.Step(cfg, snap)

		if d.Pitch != nil {
			s.logger.Debug("pitch program update",
				"turn_angle_deg", state.TurnAngle,
				"pitch_deg", d.Pitch.Pitch,
			)
			if err := s.craft.AutoPilot.TargetPitchAndHeading(ctx, d.Pitch.Pitch, d.Pitch.Heading); err != nil {
				return err
			}
			metrics.IncCommand("attitude")
			metrics.SetTurnAngle(state.TurnAngle)
		}

		if d.Stage {
			s.logger.Info("detaching SRBs")
			if err := s.craft.Control.ActivateNextStage(ctx); err != nil {
				return err
			}
			metrics.IncCommand("stage")
			metrics.IncStaging()
			s.logger.Info("SRB separation confirmed")
		}

		s.status.TurnAngle = state.TurnAngle
		s.status.SRBSeparated = state.SRBSeparated
		s.publish()

		if d.Done {
			s.logger.Info("approaching target apoapsis", "target_m", s.flight.TargetAltitude)
			return nil
		}
	}
}

// runTrim fine-tunes the apoapsis at reduced throttle, then cuts thrust.
func (s *Sequencer) runTrim(ctx context.Context) error {
	s.logger.Debug("lowering throttle", "level", s.flight.TrimThrottle)
	if err := s.craft.Control.SetThrottle(ctx, s.flight.TrimThrottle); err != nil {
		return err
	}
	metrics.IncCommand("throttle")

	for {
		snap, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		s.recordReadings(snap)
		s.publish()

		if guidance.ApoapsisReached(snap, s.flight.TargetAltitude) {
			break
		}
	}

	s.logger.Info("target apoapsis reached")
	if err := s.craft.Control.SetThrottle(ctx, 0); err != nil {
		return err
	}
	metrics.IncCommand("throttle")
	return nil
}

// runCoast waits for the vehicle to clear the atmosphere. Only the altitude
// reading matters here; every failure is retried.
func (s *Sequencer) runCoast(ctx context.Context) error {
	s.logger.Info("coasting out of atmosphere", "exit_alt_m", s.flight.CoastExitAlt)
	for {
		snap, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		s.recordReadings(snap)
		s.publish()

		if guidance.CoastComplete(snap, s.flight.CoastExitAlt) {
			return nil
		}
	}
}

// runPlan computes the circularization burn and places the maneuver node.
// A nil node with a nil error means the orbit needs no burn.
func (s *Sequencer) runPlan(ctx context.Context) (guidance.BurnPlan, craft.Node, error) {
	s.logger.Info("planning circularization burn")

	var in guidance.PlanInputs
	orbitCalls := []craft.BatchCall{
		{Name: "gravitational parameter", Do: func(ctx context.Context) error {
			v, err := s.craft.Orbit.GravitationalParameter(ctx)
			in.Mu = v
			return err
		}},
		{Name: "apoapsis radius", Do: func(ctx context.Context) error {
			v, err := s.craft.Orbit.ApoapsisRadius(ctx)
			in.ApoapsisRadius = v
			return err
		}},
		{Name: "semi-major axis", Do: func(ctx context.Context) error {
			v, err := s.craft.Orbit.SemiMajorAxis(ctx)
			in.SemiMajorAxis = v
			return err
		}},
	}
	if err := craft.FirstBatchError(orbitCalls, craft.RunBatch(ctx, orbitCalls...)); err != nil {
		return guidance.BurnPlan{}, nil, err
	}

	timeCalls := []craft.BatchCall{
		{Name: "universal time", Do: func(ctx context.Context) error {
			v, err := s.craft.Clock.UT(ctx)
			in.UT = v
			return err
		}},
		{Name: "time to apoapsis", Do: func(ctx context.Context) error {
			v, err := s.craft.Orbit.TimeToApoapsis(ctx)
			in.TimeToApoapsis = v
			return err
		}},
	}
	if err := craft.FirstBatchError(timeCalls, craft.RunBatch(ctx, timeCalls...)); err != nil {
		return guidance.BurnPlan{}, nil, err
	}

	vesselCalls := []craft.BatchCall{
		{Name: "available thrust", Do: func(ctx context.Context) error {
			v, err := s.craft.Vessel.AvailableThrust(ctx)
			in.Thrust = v
			return err
		}},
		{Name: "specific impulse", Do: func(ctx context.Context) error {
			v, err := s.craft.Vessel.SpecificImpulse(ctx)
			in.Isp = v
			return err
		}},
		{Name: "vessel mass", Do: func(ctx context.Context) error {
			v, err := s.craft.Vessel.Mass(ctx)
			in.Mass = v
			return err
		}},
	}
	if err := craft.FirstBatchError(vesselCalls, craft.RunBatch(ctx, vesselCalls...)); err != nil {
		return guidance.BurnPlan{}, nil, err
	}

	plan, err := guidance.PlanCircularization(in)
	if err != nil {
		return guidance.BurnPlan{}, nil, err
	}

	s.logger.Info("burn planned",
		"delta_v", plan.DeltaV,
		"duration_s", plan.Duration,
		"epoch", plan.Epoch,
	)
	metrics.SetBurnPlan(plan.DeltaV, plan.Duration)
	s.status.Burn = &flightstate.BurnSummary{
		Epoch:    plan.Epoch,
		DeltaV:   plan.DeltaV,
		Duration: plan.Duration,
	}
	s.publish()

	if !plan.Needed() {
		s.logger.Warn("orbit already circular at apoapsis, skipping burn", "delta_v", plan.DeltaV)
		return plan, nil, nil
	}

	node, err := s.craft.Control.AddManeuverNode(ctx, plan.Epoch, plan.DeltaV, 0, 0)
	if err != nil {
		return guidance.BurnPlan{}, nil, err
	}
	metrics.IncCommand("node")
	return plan, node, nil
}

// executeBurn orients the vehicle, warps to the burn window, and fires the
// engine for the planned duration (minus the cutoff margin). No post-burn
// verification is performed.
func (s *Sequencer) executeBurn(ctx context.Context, plan guidance.BurnPlan, node craft.Node) error {
	s.logger.Info("orienting for circularization burn")
	if err := s.craft.AutoPilot.OrientToNode(ctx, node); err != nil {
		return err
	}
	metrics.IncCommand("attitude")
	if err := s.craft.AutoPilot.Wait(ctx); err != nil {
		return err
	}

	// Recompute ignition against fresh clock readings: orientation took an
	// unknown amount of game time.
	var ut, tta float64
	calls := []craft.BatchCall{
		{Name: "universal time", Do: func(ctx context.Context) error {
			v, err := s.craft.Clock.UT(ctx)
			ut = v
			return err
		}},
		{Name: "time to apoapsis", Do: func(ctx context.Context) error {
			v, err := s.craft.Orbit.TimeToApoapsis(ctx)
			tta = v
			return err
		}},
	}
	if err := craft.FirstBatchError(calls, craft.RunBatch(ctx, calls...)); err != nil {
		return err
	}

	burnUT := ut + tta - plan.Duration/2
	s.logger.Debug("warping to burn window", "burn_ut", burnUT, "lead_time_s", s.burn.LeadTime)
	if err := s.craft.Clock.WarpTo(ctx, burnUT-s.burn.LeadTime, s.burn.WarpRailsRate, s.burn.WarpPhysicsRate); err != nil {
		return err
	}
	metrics.IncCommand("warp")

	tracker, err := s.openTTA(ctx)
	if err != nil {
		return fmt.Errorf("open time-to-apoapsis stream: %w", err)
	}
	defer tracker.Close()

	s.logger.Info("waiting for burn window")
	for {
		remaining, err := tracker.Next(ctx)
		if err != nil {
			return fmt.Errorf("time-to-apoapsis stream: %w", err)
		}
		if remaining-plan.Duration/2 <= 0 {
			break
		}
	}

	s.logger.Info("executing burn", "delta_v", plan.DeltaV, "duration_s", plan.Duration)
	if err := s.craft.Control.SetThrottle(ctx, 1.0); err != nil {
		return err
	}
	metrics.IncCommand("throttle")

	// Fixed early cutoff; the engine tail-off covers the remainder.
	if hold := plan.Duration - s.burn.CutoffMargin; hold > 0 {
		s.sleep(time.Duration(hold * float64(time.Second)))
	}
	return nil
}

// recordReadings updates metrics and the status snapshot from one telemetry
// tick. Failed readings count toward the failure metric and leave the last
// published figure untouched.
func (s *Sequencer) recordReadings(snap telemetry.Snapshot) {
	metrics.IncTelemetryUpdate()
	for _, kr := range []struct {
		key telemetry.Key
		r   telemetry.Reading
	}{
		{telemetry.KeyUT, snap.UT},
		{telemetry.KeyApoapsis, snap.Apoapsis},
		{telemetry.KeyAltitude, snap.Altitude},
		{telemetry.KeySRBFuel, snap.SRBFuel},
	} {
		if !kr.r.Ok() {
			metrics.IncTelemetryFailure(string(kr.key))
		}
	}

	if snap.UT.Ok() {
		s.status.UT = snap.UT.Value
	}
	if snap.Altitude.Ok() {
		s.status.Altitude = snap.Altitude.Value
	}
	if snap.Apoapsis.Ok() {
		s.status.Apoapsis = snap.Apoapsis.Value
		metrics.SetApoapsis(snap.Apoapsis.Value)
	}
}

// enterPhase records the phase transition in the log, metrics, and the
// published status.
func (s *Sequencer) enterPhase(p Phase) {
	s.status.Phase = string(p)
	metrics.SetPhase(string(p), Phases())
	s.logger.Info("entering phase", "phase", string(p))
	s.publish()
}

// publish pushes the current status to the flight-state store.
func (s *Sequencer) publish() {
	if s.store == nil {
		return
	}
	st := s.status
	st.UpdatedAt = time.Now()
	s.store.Set(&st)
}
