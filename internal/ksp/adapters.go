package ksp

import (
	"context"
	"fmt"

	"github.com/atburke/krpc-go/spacecenter"

	"github.com/ajmwagar/betterjeb/internal/craft"
)

// control implements craft.Control over a kRPC Control proxy.
type control struct {
	inner *spacecenter.Control
}

func (c *control) SetThrottle(ctx context.Context, level float64) error {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	if err := c.inner.SetThrottle(float32(level)); err != nil {
		return fmt.Errorf("set throttle: %w", err)
	}
	return nil
}

func (c *control) SetSAS(ctx context.Context, enabled bool) error {
	if err := c.inner.SetSAS(enabled); err != nil {
		return fmt.Errorf("set SAS: %w", err)
	}
	return nil
}

func (c *control) SetRCS(ctx context.Context, enabled bool) error {
	if err := c.inner.SetRCS(enabled); err != nil {
		return fmt.Errorf("set RCS: %w", err)
	}
	return nil
}

func (c *control) ActivateNextStage(ctx context.Context) error {
	if _, err := c.inner.ActivateNextStage(); err != nil {
		return fmt.Errorf("activate next stage: %w", err)
	}
	return nil
}

func (c *control) AddManeuverNode(ctx context.Context, epoch, prograde, normal, radial float64) (craft.Node, error) {
	inner, err := c.inner.AddNode(epoch, float32(prograde), float32(normal), float32(radial))
	if err != nil {
		return nil, fmt.Errorf("add maneuver node: %w", err)
	}
	return &maneuverNode{inner: inner}, nil
}

// maneuverNode implements craft.Node over a kRPC Node proxy.
type maneuverNode struct {
	inner *spacecenter.Node
}

func (n *maneuverNode) DeltaV(ctx context.Context) (float64, error) {
	dv, err := n.inner.RemainingDeltaV()
	if err != nil {
		return 0, fmt.Errorf("node delta-v: %w", err)
	}
	return dv, nil
}

// autoPilot implements craft.AutoPilot. It holds the vessel as well, because
// orienting to a node reads the prograde direction from a Flight proxy bound
// to the node's reference frame.
type autoPilot struct {
	inner  *spacecenter.AutoPilot
	vessel *spacecenter.Vessel
}

func (a *autoPilot) Engage(ctx context.Context) error {
	if err := a.inner.Engage(); err != nil {
		return fmt.Errorf("engage autopilot: %w", err)
	}
	return nil
}

func (a *autoPilot) Disengage(ctx context.Context) error {
	if err := a.inner.Disengage(); err != nil {
		return fmt.Errorf("disengage autopilot: %w", err)
	}
	return nil
}

func (a *autoPilot) TargetPitchAndHeading(ctx context.Context, pitch, heading float64) error {
	if err := a.inner.TargetPitchAndHeading(float32(pitch), float32(heading)); err != nil {
		return fmt.Errorf("set pitch and heading: %w", err)
	}
	return nil
}

// OrientToNode switches the autopilot into the node's reference frame and
// targets the prograde direction of the pending burn, read from a flight
// proxy in that frame. The node must come from the same connection.
func (a *autoPilot) OrientToNode(ctx context.Context, cn craft.Node) error {
	n, ok := cn.(*maneuverNode)
	if !ok {
		return fmt.Errorf("orient to node: node %T was not created by this client", cn)
	}

	frame, err := n.inner.ReferenceFrame()
	if err != nil {
		return fmt.Errorf("node reference frame: %w", err)
	}
	if err := a.inner.SetReferenceFrame(frame); err != nil {
		return fmt.Errorf("set autopilot reference frame: %w", err)
	}

	flight, err := a.vessel.Flight(frame)
	if err != nil {
		return fmt.Errorf("flight in node frame: %w", err)
	}
	dir, err := flight.Prograde()
	if err != nil {
		return fmt.Errorf("read prograde direction: %w", err)
	}

	calls := []craft.BatchCall{
		{Name: "set target pitch", Do: func(context.Context) error {
			return a.inner.SetTargetPitch(float32(dir.A))
		}},
		{Name: "set target heading", Do: func(context.Context) error {
			return a.inner.SetTargetHeading(float32(dir.B))
		}},
	}
	return craft.FirstBatchError(calls, craft.RunBatch(ctx, calls...))
}

// Wait blocks on the autopilot's own settle detection. The threshold the
// game applies internally is opaque to us.
func (a *autoPilot) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- a.inner.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("autopilot wait: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// orbitInfo implements craft.Orbit over a kRPC Orbit proxy.
type orbitInfo struct {
	inner *spacecenter.Orbit
}

func (o *orbitInfo) ApoapsisRadius(ctx context.Context) (float64, error) {
	r, err := o.inner.Apoapsis()
	if err != nil {
		return 0, fmt.Errorf("apoapsis radius: %w", err)
	}
	return r, nil
}

func (o *orbitInfo) SemiMajorAxis(ctx context.Context) (float64, error) {
	a, err := o.inner.SemiMajorAxis()
	if err != nil {
		return 0, fmt.Errorf("semi-major axis: %w", err)
	}
	return a, nil
}

func (o *orbitInfo) TimeToApoapsis(ctx context.Context) (float64, error) {
	tta, err := o.inner.TimeToApoapsis()
	if err != nil {
		return 0, fmt.Errorf("time to apoapsis: %w", err)
	}
	return tta, nil
}

func (o *orbitInfo) GravitationalParameter(ctx context.Context) (float64, error) {
	body, err := o.inner.Body()
	if err != nil {
		return 0, fmt.Errorf("orbit body: %w", err)
	}
	mu, err := body.GravitationalParameter()
	if err != nil {
		return 0, fmt.Errorf("gravitational parameter: %w", err)
	}
	return float64(mu), nil
}

// vessel implements craft.Vessel over a kRPC Vessel proxy.
type vessel struct {
	inner *spacecenter.Vessel
}

func (v *vessel) Mass(ctx context.Context) (float64, error) {
	m, err := v.inner.Mass()
	if err != nil {
		return 0, fmt.Errorf("vessel mass: %w", err)
	}
	return float64(m), nil
}

func (v *vessel) AvailableThrust(ctx context.Context) (float64, error) {
	f, err := v.inner.AvailableThrust()
	if err != nil {
		return 0, fmt.Errorf("available thrust: %w", err)
	}
	return float64(f), nil
}

func (v *vessel) SpecificImpulse(ctx context.Context) (float64, error) {
	isp, err := v.inner.SpecificImpulse()
	if err != nil {
		return 0, fmt.Errorf("specific impulse: %w", err)
	}
	return float64(isp), nil
}

// clock implements craft.Clock over the SpaceCenter service.
type clock struct {
	sc *spacecenter.SpaceCenter
}

func (c *clock) UT(ctx context.Context) (float64, error) {
	ut, err := c.sc.UT()
	if err != nil {
		return 0, fmt.Errorf("universal time: %w", err)
	}
	return ut, nil
}

func (c *clock) WarpTo(ctx context.Context, ut, railsRate, physicsRate float64) error {
	if err := c.sc.WarpTo(ut, float32(railsRate), float32(physicsRate)); err != nil {
		return fmt.Errorf("warp to %.1f: %w", ut, err)
	}
	return nil
}
