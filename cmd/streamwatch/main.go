// Command streamwatch subscribes the ascent telemetry streams and prints
// each update. Useful for checking stream health and subscription behavior
// against a running kRPC server without flying anything.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ajmwagar/betterjeb/internal/config"
	"github.com/ajmwagar/betterjeb/internal/ksp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(os.Getenv("BETTERJEB_CONFIG"), logger)
	if err != nil {
		fmt.Println("ERROR loading config:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := ksp.Connect(ctx, cfg.Connection, logger)
	if err != nil {
		fmt.Println("ERROR connecting:", err)
		os.Exit(1)
	}
	defer client.Close()

	source, err := client.Telemetry(ctx, cfg.Flight)
	if err != nil {
		fmt.Println("ERROR subscribing telemetry:", err)
		os.Exit(1)
	}

	fmt.Printf("watching streams from %s (Ctrl-C to stop)\n", cfg.Connection.Host)
	for {
		snap, err := source.Next(ctx)
		if err != nil {
			fmt.Println("stream ended:", err)
			return
		}
		fmt.Printf("ut=%s apoapsis=%s altitude=%s srb_fuel=%s\n",
			snap.UT, snap.Apoapsis, snap.Altitude, snap.SRBFuel)
	}
}
