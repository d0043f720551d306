package ksp

import (
	"context"
	"fmt"
	"log/slog"

	krpcgo "github.com/atburke/krpc-go"

	"github.com/ajmwagar/betterjeb/internal/config"
	"github.com/ajmwagar/betterjeb/internal/telemetry"
)

// Telemetry subscribes the four ascent streams (universal time, apoapsis
// altitude, mean altitude, SRB fuel) and returns a Source merging them into
// per-tick snapshots. The pump goroutines run until ctx is cancelled or a
// stream closes; a closed stream fails the whole source, since the guidance
// loop cannot continue without its feed.
func (c *Client) Telemetry(ctx context.Context, flight config.FlightConfig) (telemetry.Source, error) {
	frame, err := c.vessel.OrbitalReferenceFrame()
	if err != nil {
		return nil, fmt.Errorf("orbital reference frame: %w", err)
	}
	fl, err := c.vessel.Flight(frame)
	if err != nil {
		return nil, fmt.Errorf("flight telemetry: %w", err)
	}
	orb, err := c.vessel.Orbit()
	if err != nil {
		return nil, fmt.Errorf("resolve orbit: %w", err)
	}
	srb, err := c.vessel.ResourcesInDecoupleStage(int32(flight.SRBDecoupleStage), true)
	if err != nil {
		return nil, fmt.Errorf("SRB decouple-stage resources: %w", err)
	}

	utStream, err := c.sc.UTStream()
	if err != nil {
		return nil, fmt.Errorf("subscribe universal time: %w", err)
	}
	apoStream, err := orb.ApoapsisAltitudeStream()
	if err != nil {
		return nil, fmt.Errorf("subscribe apoapsis altitude: %w", err)
	}
	altStream, err := fl.MeanAltitudeStream()
	if err != nil {
		return nil, fmt.Errorf("subscribe mean altitude: %w", err)
	}
	fuelStream, err := srb.AmountStream(flight.SRBFuelName)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s amount: %w", flight.SRBFuelName, err)
	}

	agg := telemetry.NewAggregator()
	go pump(ctx, agg, telemetry.KeyUT, utStream, c.logger)
	go pump(ctx, agg, telemetry.KeyApoapsis, apoStream, c.logger)
	go pump(ctx, agg, telemetry.KeyAltitude, altStream, c.logger)
	go pump(ctx, agg, telemetry.KeySRBFuel, fuelStream, c.logger)
	return agg, nil
}

// pump feeds one stream into the aggregator.
func pump[T float32 | float64](ctx context.Context, agg *telemetry.Aggregator, key telemetry.Key, s *krpcgo.Stream[T], logger *slog.Logger) {
	for {
		select {
		case v, ok := <-s.C:
			if !ok {
				logger.Warn("telemetry stream closed", "key", string(key))
				agg.Fail(fmt.Errorf("telemetry stream %s closed", key))
				return
			}
			agg.Publish(key, float64(v))
		case <-ctx.Done():
			s.Close()
			return
		}
	}
}

// TimeToApoapsis subscribes a dedicated time-to-apoapsis stream for the burn
// window wait.
func (c *Client) TimeToApoapsis(ctx context.Context) (telemetry.ScalarSource, error) {
	orb, err := c.vessel.Orbit()
	if err != nil {
		return nil, fmt.Errorf("resolve orbit: %w", err)
	}
	s, err := orb.TimeToApoapsisStream()
	if err != nil {
		return nil, fmt.Errorf("subscribe time to apoapsis: %w", err)
	}
	return &scalarStream{s: s}, nil
}

// scalarStream adapts one kRPC stream to telemetry.ScalarSource.
type scalarStream struct {
	s *krpcgo.Stream[float64]
}

func (x *scalarStream) Next(ctx context.Context) (float64, error) {
	select {
	case v, ok := <-x.s.C:
		if !ok {
			return 0, fmt.Errorf("stream closed")
		}
		return v, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (x *scalarStream) Close() error {
	return x.s.Close()
}
