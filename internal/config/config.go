// Package config loads the launch configuration from an optional YAML file
// with BETTERJEB_* environment overrides. Invalid values fall back to the
// defaults with a warning rather than aborting the launch.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Config is the complete program configuration.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Flight     FlightConfig     `yaml:"flight"`
	Burn       BurnConfig       `yaml:"burn"`
	Ops        OpsConfig        `yaml:"ops"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConnectionConfig holds kRPC server settings. The server's RPC and stream
// ports are the kRPC defaults (50000/50001).
type ConnectionConfig struct {
	Host string `yaml:"host"`
	Name string `yaml:"name"` // connection name shown in the game
}

// FlightConfig holds the ascent profile.
type FlightConfig struct {
	TargetAltitude   float64 `yaml:"targetAltitude"`   // desired apoapsis, m
	TurnStartAlt     float64 `yaml:"turnStartAlt"`     // gravity turn start, m
	TurnEndAlt       float64 `yaml:"turnEndAlt"`       // gravity turn end, m
	PitchHysteresis  float64 `yaml:"pitchHysteresis"`  // degrees
	TrimThrottle     float64 `yaml:"trimThrottle"`     // throttle while fine-tuning apoapsis
	CoastExitAlt     float64 `yaml:"coastExitAlt"`     // atmosphere-exit altitude, m
	SRBFuelName      string  `yaml:"srbFuelName"`      // resource name watched for separation
	SRBDecoupleStage int     `yaml:"srbDecoupleStage"` // decouple stage holding the SRBs
	CountdownSeconds int     `yaml:"countdownSeconds"`
}

// BurnConfig holds circularization burn execution settings.
type BurnConfig struct {
	LeadTime        float64 `yaml:"leadTime"`        // warp target leads ignition by this, s
	CutoffMargin    float64 `yaml:"cutoffMargin"`    // engine cut this early, s
	WarpRailsRate   float64 `yaml:"warpRailsRate"`   // max on-rails warp factor
	WarpPhysicsRate float64 `yaml:"warpPhysicsRate"` // max physical warp factor
}

// OpsConfig holds the observation HTTP server settings. An empty Addr
// disables the server.
type OpsConfig struct {
	Addr              string `yaml:"addr"`
	AuthToken         string `yaml:"authToken"`
	StreamMaxPerIP    int    `yaml:"streamMaxPerIP"`
	StreamKeepaliveS  int    `yaml:"streamKeepaliveSeconds"`
	TrustProxyHeaders bool   `yaml:"trustProxyHeaders"`
}

// LoggingConfig holds log level and optional rotating file output.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`  // empty: stdout only
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// Default returns the built-in launch profile: a low Kerbin orbit.
func Default() Config {
	return Config{
		Connection: ConnectionConfig{
			Host: "127.0.0.1",
			Name: "Launch into Orbit",
		},
		Flight: FlightConfig{
			TargetAltitude:   74000,
			TurnStartAlt:     250,
			TurnEndAlt:       45000,
			PitchHysteresis:  0.5,
			TrimThrottle:     0.25,
			CoastExitAlt:     70500,
			SRBFuelName:      "SolidFuel",
			SRBDecoupleStage: 2,
			CountdownSeconds: 10,
		},
		Burn: BurnConfig{
			LeadTime:        5,
			CutoffMargin:    0.5,
			WarpRailsRate:   50,
			WarpPhysicsRate: 4,
		},
		Ops: OpsConfig{
			Addr:             "",
			StreamMaxPerIP:   10,
			StreamKeepaliveS: 30,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment overrides. The returned
// config is validated.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg, logger)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants the guidance loop depends on.
func (c Config) Validate() error {
	if c.Connection.Host == "" {
		return fmt.Errorf("connection.host must not be empty")
	}
	if c.Flight.TargetAltitude <= 0 {
		return fmt.Errorf("flight.targetAltitude must be positive")
	}
	if c.Flight.TurnStartAlt >= c.Flight.TurnEndAlt {
		return fmt.Errorf("flight.turnStartAlt must be below flight.turnEndAlt")
	}
	if c.Flight.TrimThrottle < 0 || c.Flight.TrimThrottle > 1 {
		return fmt.Errorf("flight.trimThrottle must be within [0, 1]")
	}
	if c.Flight.PitchHysteresis < 0 {
		return fmt.Errorf("flight.pitchHysteresis must not be negative")
	}
	if c.Burn.CutoffMargin < 0 {
		return fmt.Errorf("burn.cutoffMargin must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config, logger *slog.Logger) {
	if v := os.Getenv("BETTERJEB_KRPC_HOST"); v != "" {
		cfg.Connection.Host = v
	}
	if v := os.Getenv("BETTERJEB_OPS_ADDR"); v != "" {
		cfg.Ops.Addr = v
	}
	if v := os.Getenv("BETTERJEB_OPS_TOKEN"); v != "" {
		cfg.Ops.AuthToken = v
	}
	if v := os.Getenv("BETTERJEB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BETTERJEB_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	envFloat(logger, "BETTERJEB_TARGET_ALTITUDE", &cfg.Flight.TargetAltitude)
	envFloat(logger, "BETTERJEB_TURN_START_ALT", &cfg.Flight.TurnStartAlt)
	envFloat(logger, "BETTERJEB_TURN_END_ALT", &cfg.Flight.TurnEndAlt)
	envFloat(logger, "BETTERJEB_TRIM_THROTTLE", &cfg.Flight.TrimThrottle)
	envInt(logger, "BETTERJEB_COUNTDOWN_SECONDS", &cfg.Flight.CountdownSeconds)
	envFloat(logger, "BETTERJEB_BURN_CUTOFF_MARGIN", &cfg.Burn.CutoffMargin)
	envFloat(logger, "BETTERJEB_BURN_LEAD_TIME", &cfg.Burn.LeadTime)
}

func envFloat(logger *slog.Logger, name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warn("invalid value, using default", "env", name, "value", v, "default", *dst)
		return
	}
	*dst = f
}

func envInt(logger *slog.Logger, name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		logger.Warn("invalid value, using default", "env", name, "value", v, "default", *dst)
		return
	}
	*dst = n
}
