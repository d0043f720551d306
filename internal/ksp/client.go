// Package ksp implements the craft and telemetry interfaces over the kRPC
// remote link using github.com/atburke/krpc-go. It is the only package that
// touches the kRPC SDK; everything above it programs against
// internal/craft and internal/telemetry.
package ksp

import (
	"context"
	"fmt"
	"log/slog"

	krpcgo "github.com/atburke/krpc-go"
	"github.com/atburke/krpc-go/spacecenter"

	"github.com/ajmwagar/betterjeb/internal/config"
	"github.com/ajmwagar/betterjeb/internal/craft"
)

// Client is a live connection to a kRPC server with the active vessel
// resolved. One-shot call failures through a Client are unrecoverable and
// should abort the mission.
type Client struct {
	rpc    *krpcgo.KRPCClient
	sc     *spacecenter.SpaceCenter
	vessel *spacecenter.Vessel
	logger *slog.Logger
}

// Connect dials the kRPC server at the configured host (RPC and stream ports
// are the kRPC defaults) and resolves the active vessel.
func Connect(ctx context.Context, cfg config.ConnectionConfig, logger *slog.Logger) (*Client, error) {
	rpc := krpcgo.DefaultKRPCClient()
	rpc.Host = cfg.Host
	if err := rpc.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to kRPC at %s: %w", cfg.Host, err)
	}

	sc := spacecenter.New(rpc)
	vessel, err := sc.ActiveVessel()
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("resolve active vessel: %w", err)
	}

	logger.Debug("kRPC connection established", "host", cfg.Host)
	return &Client{rpc: rpc, sc: sc, vessel: vessel, logger: logger}, nil
}

// Close tears down the connection. Any streams created from this client stop
// delivering.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Control returns the vehicle command interface.
func (c *Client) Control(ctx context.Context) (craft.Control, error) {
	inner, err := c.vessel.Control()
	if err != nil {
		return nil, fmt.Errorf("resolve vessel control: %w", err)
	}
	return &control{inner: inner}, nil
}

// AutoPilot returns the attitude control interface.
func (c *Client) AutoPilot(ctx context.Context) (craft.AutoPilot, error) {
	inner, err := c.vessel.AutoPilot()
	if err != nil {
		return nil, fmt.Errorf("resolve autopilot: %w", err)
	}
	return &autoPilot{inner: inner, vessel: c.vessel}, nil
}

// Orbit returns the read-only orbital element interface.
func (c *Client) Orbit(ctx context.Context) (craft.Orbit, error) {
	inner, err := c.vessel.Orbit()
	if err != nil {
		return nil, fmt.Errorf("resolve orbit: %w", err)
	}
	return &orbitInfo{inner: inner}, nil
}

// Vessel returns the vehicle property interface.
func (c *Client) Vessel(ctx context.Context) (craft.Vessel, error) {
	return &vessel{inner: c.vessel}, nil
}

// Clock returns universal time and time-warp control.
func (c *Client) Clock(ctx context.Context) (craft.Clock, error) {
	return &clock{sc: c.sc}, nil
}
