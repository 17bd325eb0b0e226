package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Simulator.RefreshJitter != 0.05 || cfg.Simulator.BroadcastJitter != 0.01 {
		t.Errorf("jitter = %v/%v, want 0.05/0.01", cfg.Simulator.RefreshJitter, cfg.Simulator.BroadcastJitter)
	}
	if !cfg.Visibility.FallbackToFullVisibility {
		t.Error("fallback_to_full_visibility should default to true")
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
simulator:
  broadcast_jitter: 0
channels:
  vessels:
    interval: 2s
    write_through: true
  ships:
    bbox:
      min_lat: 50
      max_lat: 60
      min_lon: 0
      max_lon: 20
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default lost: %q", cfg.Server.Host)
	}
	if cfg.Simulator.BroadcastJitter != 0 || cfg.Simulator.RefreshJitter != 0.05 {
		t.Errorf("jitter = %v/%v", cfg.Simulator.BroadcastJitter, cfg.Simulator.RefreshJitter)
	}

	vessels, _ := cfg.Channel("vessels")
	if vessels.Interval != 2*time.Second || !vessels.WriteThrough {
		t.Errorf("vessels = %+v", vessels)
	}
	if vessels.Source != SourceSimulated {
		t.Errorf("vessels source default lost: %q", vessels.Source)
	}

	ships, _ := cfg.Channel("ships")
	want := vessel.BoundingBox{MinLat: 50, MaxLat: 60, MinLon: 0, MaxLon: 20}
	if ships.BBox != want {
		t.Errorf("ships bbox = %+v, want %+v", ships.BBox, want)
	}
	if ships.Interval != 10*time.Second {
		t.Errorf("ships interval default lost: %v", ships.Interval)
	}
}

func TestLoadPartialBBoxDefaultsToGlobe(t *testing.T) {
	path := writeConfig(t, `
channels:
  ships:
    bbox:
      min_lat: 50
      max_lat: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ships, _ := cfg.Channel("ships")
	want := vessel.BoundingBox{MinLat: 50, MaxLat: 60, MinLon: -180, MaxLon: 180}
	if ships.BBox != want {
		t.Fatalf("ships bbox = %+v, want %+v", ships.BBox, want)
	}
	if !ships.BBox.Contains(55, 10) {
		t.Error("box with omitted longitudes must span every meridian")
	}

	vessels, _ := cfg.Channel("vessels")
	if vessels.BBox != vessel.Globe {
		t.Errorf("vessels bbox = %+v, want Globe", vessels.BBox)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load(missing) = %v, want ErrNotExist", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLEET_JWT_SECRET", "s3cret")
	t.Setenv("FLEET_AIS_USERNAME", "AH_0000")
	t.Setenv("FLEET_DB_PATH", "/tmp/other.db")

	cfg, err := Load(writeConfig(t, "auth:\n  jwt_secret: from-file\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.AIS.Username != "AH_0000" || cfg.Store.Path != "/tmp/other.db" {
		t.Errorf("env overrides not applied: %+v %+v", cfg.AIS, cfg.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"sqlite without path", func(c *Config) { c.Store.Driver = "sqlite"; c.Store.Path = "" }, "store.path"},
		{"negative jitter", func(c *Config) { c.Simulator.BroadcastJitter = -1 }, "jitter"},
		{"zero interval", func(c *Config) { c.Channels.Analyst.Interval = 0 }, "channels.analyst.interval"},
		{"unknown source", func(c *Config) { c.Channels.Ships.Source = "kafka" }, "channels.ships.source"},
		{"ais source while disabled", func(c *Config) { c.Channels.Vessels.Source = SourceAIS }, "ais.enabled is false"},
		{"inverted bbox", func(c *Config) {
			c.Channels.Vessels.BBox = vessel.BoundingBox{MinLat: 10, MaxLat: -10, MinLon: 0, MaxLon: 1}
		}, "channels.vessels.bbox"},
		{"bad anonymous role", func(c *Config) {
			c.Auth.AllowAnonymous = true
			c.Auth.AnonymousRole = "captain"
		}, "auth.anonymous_role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateSkipsDisabledChannel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Channels.Health.Disabled = true
	cfg.Channels.Health.Interval = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled channel validated: %v", err)
	}
}

func TestChannelLookup(t *testing.T) {
	cfg := defaultConfig()
	if _, ok := cfg.Channel("notifications"); ok {
		t.Error("notifications is event-driven and has no timer settings")
	}
	if ch, ok := cfg.Channel("health"); !ok || ch.Interval != 30*time.Second {
		t.Errorf("health = %+v, %v", ch, ok)
	}
}
