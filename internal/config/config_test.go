package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Connection.Host != "127.0.0.1" {
		t.Errorf("Host = %q, want 127.0.0.1", cfg.Connection.Host)
	}
	if cfg.Flight.TargetAltitude != 74000 {
		t.Errorf("TargetAltitude = %v, want 74000", cfg.Flight.TargetAltitude)
	}
	if cfg.Flight.TurnStartAlt != 250 || cfg.Flight.TurnEndAlt != 45000 {
		t.Errorf("turn window = [%v, %v], want [250, 45000]", cfg.Flight.TurnStartAlt, cfg.Flight.TurnEndAlt)
	}
	if cfg.Flight.SRBFuelName != "SolidFuel" {
		t.Errorf("SRBFuelName = %q, want SolidFuel", cfg.Flight.SRBFuelName)
	}
	if cfg.Burn.WarpRailsRate != 50 || cfg.Burn.WarpPhysicsRate != 4 {
		t.Errorf("warp rates = (%v, %v), want (50, 4)", cfg.Burn.WarpRailsRate, cfg.Burn.WarpPhysicsRate)
	}
	if cfg.Ops.Addr != "" {
		t.Errorf("Ops.Addr = %q, want empty (disabled)", cfg.Ops.Addr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "launch.yaml")
	body := `
connection:
  host: 192.168.1.50
flight:
  targetAltitude: 120000
  trimThrottle: 0.1
burn:
  cutoffMargin: 0.25
ops:
  addr: ":9000"
  authToken: hunter2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Host != "192.168.1.50" {
		t.Errorf("Host = %q", cfg.Connection.Host)
	}
	if cfg.Flight.TargetAltitude != 120000 {
		t.Errorf("TargetAltitude = %v, want 120000", cfg.Flight.TargetAltitude)
	}
	if cfg.Flight.TrimThrottle != 0.1 {
		t.Errorf("TrimThrottle = %v, want 0.1", cfg.Flight.TrimThrottle)
	}
	if cfg.Burn.CutoffMargin != 0.25 {
		t.Errorf("CutoffMargin = %v, want 0.25", cfg.Burn.CutoffMargin)
	}
	if cfg.Ops.Addr != ":9000" || cfg.Ops.AuthToken != "hunter2" {
		t.Errorf("Ops = %+v", cfg.Ops)
	}
	// Untouched keys keep their defaults.
	if cfg.Flight.TurnEndAlt != 45000 {
		t.Errorf("TurnEndAlt = %v, want default 45000", cfg.Flight.TurnEndAlt)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), discardLogger())
	if err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Errorf("err = %v, want read failure", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BETTERJEB_KRPC_HOST", "10.0.0.7")
	t.Setenv("BETTERJEB_TARGET_ALTITUDE", "90000")
	t.Setenv("BETTERJEB_COUNTDOWN_SECONDS", "3")
	t.Setenv("BETTERJEB_OPS_TOKEN", "secret")

	cfg, err := Load("", discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Host != "10.0.0.7" {
		t.Errorf("Host = %q, want 10.0.0.7", cfg.Connection.Host)
	}
	if cfg.Flight.TargetAltitude != 90000 {
		t.Errorf("TargetAltitude = %v, want 90000", cfg.Flight.TargetAltitude)
	}
	if cfg.Flight.CountdownSeconds != 3 {
		t.Errorf("CountdownSeconds = %v, want 3", cfg.Flight.CountdownSeconds)
	}
	if cfg.Ops.AuthToken != "secret" {
		t.Errorf("AuthToken = %q, want secret", cfg.Ops.AuthToken)
	}
}

func TestEnvInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv("BETTERJEB_TARGET_ALTITUDE", "not-a-number")
	t.Setenv("BETTERJEB_COUNTDOWN_SECONDS", "-4")

	cfg, err := Load("", discardLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Flight.TargetAltitude != 74000 {
		t.Errorf("TargetAltitude = %v, want default 74000", cfg.Flight.TargetAltitude)
	}
	if cfg.Flight.CountdownSeconds != 10 {
		t.Errorf("CountdownSeconds = %v, want default 10", cfg.Flight.CountdownSeconds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty host", func(c *Config) { c.Connection.Host = "" }, "connection.host"},
		{"zero target", func(c *Config) { c.Flight.TargetAltitude = 0 }, "targetAltitude"},
		{"inverted turn window", func(c *Config) { c.Flight.TurnStartAlt = 50000 }, "turnStartAlt"},
		{"trim throttle above 1", func(c *Config) { c.Flight.TrimThrottle = 1.5 }, "trimThrottle"},
		{"negative hysteresis", func(c *Config) { c.Flight.PitchHysteresis = -0.1 }, "pitchHysteresis"},
		{"negative cutoff margin", func(c *Config) { c.Burn.CutoffMargin = -1 }, "cutoffMargin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
	})
}
