package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ajmwagar/betterjeb/internal/auth"
	"github.com/ajmwagar/betterjeb/internal/config"
	"github.com/ajmwagar/betterjeb/internal/flightstate"
	"github.com/ajmwagar/betterjeb/internal/ksp"
	"github.com/ajmwagar/betterjeb/internal/mission"
	"github.com/ajmwagar/betterjeb/internal/opsserver"
	"github.com/ajmwagar/betterjeb/internal/telemetry"
)

func main() {
	boot := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(os.Getenv("BETTERJEB_CONFIG"), boot)
	if err != nil {
		boot.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := buildLogger(cfg.Logging)

	// Abort cleanly between suspension points on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("connecting to kRPC", "host", cfg.Connection.Host)
	client, err := ksp.Connect(ctx, cfg.Connection, logger)
	if err != nil {
		logger.Error("kRPC connection failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	control, err := client.Control(ctx)
	if err != nil {
		fatal(logger, err)
	}
	autoPilot, err := client.AutoPilot(ctx)
	if err != nil {
		fatal(logger, err)
	}
	orbit, err := client.Orbit(ctx)
	if err != nil {
		fatal(logger, err)
	}
	vessel, err := client.Vessel(ctx)
	if err != nil {
		fatal(logger, err)
	}
	clock, err := client.Clock(ctx)
	if err != nil {
		fatal(logger, err)
	}
	source, err := client.Telemetry(ctx, cfg.Flight)
	if err != nil {
		fatal(logger, err)
	}

	store := flightstate.NewStore()

	if cfg.Ops.Addr != "" {
		srv := opsserver.NewServer(
			opsserver.Config{
				Addr:              cfg.Ops.Addr,
				StreamMaxPerIP:    cfg.Ops.StreamMaxPerIP,
				KeepaliveInterval: time.Duration(cfg.Ops.StreamKeepaliveS) * time.Second,
				TrustProxyHeaders: cfg.Ops.TrustProxyHeaders,
			},
			auth.Config{Enabled: cfg.Ops.AuthToken != "", Token: cfg.Ops.AuthToken},
			store,
			logger,
		)
		go func() {
			logger.Info("starting ops server", "addr", cfg.Ops.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server listen error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				logger.Error("ops server shutdown error", "error", err)
			}
		}()
	}

	seq := mission.New(
		mission.Craft{
			Control:   control,
			AutoPilot: autoPilot,
			Orbit:     orbit,
			Vessel:    vessel,
			Clock:     clock,
		},
		source,
		func(ctx context.Context) (telemetry.ScalarSource, error) {
			return client.TimeToApoapsis(ctx)
		},
		cfg.Flight,
		cfg.Burn,
		store,
		logger,
	)

	if err := seq.Run(ctx); err != nil {
		logger.Error("mission failed", "error", err)
		os.Exit(1)
	}
}

func fatal(logger *slog.Logger, err error) {
	logger.Error("remote call failed", "error", err)
	os.Exit(1)
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stdout
	if cfg.File != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
