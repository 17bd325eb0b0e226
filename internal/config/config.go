package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NaguruReddySameera/LiveTracking-project/internal/logging"
	"github.com/NaguruReddySameera/LiveTracking-project/internal/vessel"
)

// Channel data sources.
const (
	SourceSimulated = "simulated"
	SourceAIS       = "ais"
	SourceStore     = "store"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    logging.Config   `yaml:"logging"`
	Auth       AuthConfig       `yaml:"auth"`
	Store      StoreConfig      `yaml:"store"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	AIS        AISConfig        `yaml:"ais"`
	Visibility VisibilityConfig `yaml:"visibility"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// MaxConnections caps concurrent websocket clients; 0 means unlimited.
	MaxConnections int `yaml:"max_connections"`
	// ControlRate and ControlBurst bound client control messages per connection.
	ControlRate  float64 `yaml:"control_rate"`
	ControlBurst int     `yaml:"control_burst"`
	// RESTRequestsPerMinute limits REST calls per client IP.
	RESTRequestsPerMinute int `yaml:"rest_requests_per_minute"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 bearer tokens. Overridden by FLEET_JWT_SECRET.
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	// AllowAnonymous admits clients without a token under AnonymousRole.
	AllowAnonymous bool   `yaml:"allow_anonymous"`
	AnonymousRole  string `yaml:"anonymous_role"`
	// PolicyPath replaces the built-in channel access policy when set.
	PolicyPath string `yaml:"policy_path"`
}

type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver      string        `yaml:"driver"`
	Path        string        `yaml:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type SimulatorConfig struct {
	// RefreshJitter is the per-tick jitter bound (degrees) of the slow
	// background refresh that writes positions to the store.
	RefreshJitter float64 `yaml:"refresh_jitter"`
	// BroadcastJitter is the jitter bound used by simulated broadcast channels.
	BroadcastJitter float64       `yaml:"broadcast_jitter"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	RefreshEnabled  bool          `yaml:"refresh_enabled"`
	MaxSpeed        float64       `yaml:"max_speed"`
}

type AISConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Timeout  time.Duration `yaml:"timeout"`
	// FailureThreshold is the consecutive failure count at which the feed
	// is reported as failed.
	FailureThreshold int           `yaml:"failure_threshold"`
	Breaker          BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio"`
}

type VisibilityConfig struct {
	// FallbackToFullVisibility lets operators without any active
	// assignment see the full fleet.
	FallbackToFullVisibility bool `yaml:"fallback_to_full_visibility"`
}

type ChannelsConfig struct {
	Vessels ChannelConfig `yaml:"vessels"`
	Ships   ChannelConfig `yaml:"ships"`
	Analyst ChannelConfig `yaml:"analyst"`
	Health  ChannelConfig `yaml:"health"`
}

type ChannelConfig struct {
	Disabled     bool               `yaml:"disabled"`
	Interval     time.Duration      `yaml:"interval"`
	Source       string             `yaml:"source"`
	WriteThrough bool               `yaml:"write_through"`
	// BBox bounds omitted from the file keep the globe edge.
	BBox vessel.BoundingBox `yaml:"bbox"`
}

type SupervisorConfig struct {
	FailureThreshold float64       `yaml:"failure_threshold"`
	FailureDecay     float64       `yaml:"failure_decay"`
	FailureBackoff   time.Duration `yaml:"failure_backoff"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  8080,
			Host:                  "0.0.0.0",
			ControlRate:           5,
			ControlBurst:          20,
			RESTRequestsPerMinute: 120,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
		Auth: AuthConfig{
			Issuer:        "fleet-tracker",
			AnonymousRole: string(vessel.RoleAnalyst),
		},
		Store: StoreConfig{
			Driver:      "memory",
			Path:        "data/fleet.db",
			BusyTimeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{
			RefreshJitter:   0.05,
			BroadcastJitter: 0.01,
			RefreshInterval: time.Minute,
			RefreshEnabled:  true,
			MaxSpeed:        25,
		},
		AIS: AISConfig{
			BaseURL:          "https://data.aishub.net/ws.php",
			Timeout:          5 * time.Second,
			FailureThreshold: 3,
			Breaker: BreakerConfig{
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  5,
				FailureRatio: 0.6,
			},
		},
		Visibility: VisibilityConfig{FallbackToFullVisibility: true},
		Channels: ChannelsConfig{
			Vessels: ChannelConfig{Interval: 5 * time.Second, Source: SourceSimulated, BBox: vessel.Globe},
			Ships:   ChannelConfig{Interval: 10 * time.Second, Source: SourceStore, BBox: vessel.Globe},
			Analyst: ChannelConfig{Interval: 15 * time.Second, Source: SourceStore, BBox: vessel.Globe},
			Health:  ChannelConfig{Interval: 30 * time.Second, Source: SourceStore, BBox: vessel.Globe},
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in configuration with environment overrides.
func Default() *Config {
	cfg := defaultConfig()
	cfg.applyEnv()
	return cfg
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FLEET_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("FLEET_AIS_USERNAME"); v != "" {
		c.AIS.Username = v
	}
	if v := os.Getenv("FLEET_DB_PATH"); v != "" {
		c.Store.Path = v
	}
}

// Channel returns the settings of a timer-driven channel by name.
func (c *Config) Channel(name string) (ChannelConfig, bool) {
	switch name {
	case "vessels":
		return c.Channels.Vessels, true
	case "ships":
		return c.Channels.Ships, true
	case "analyst":
		return c.Channels.Analyst, true
	case "health":
		return c.Channels.Health, true
	}
	return ChannelConfig{}, false
}

// Validate reports every configuration problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxConnections < 0 {
		add("server.max_connections must not be negative")
	}
	if c.Server.ControlRate <= 0 || c.Server.ControlBurst <= 0 {
		add("server.control_rate and server.control_burst must be positive")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			add("store.path is required for the sqlite driver")
		}
	default:
		add("store.driver %q must be memory or sqlite", c.Store.Driver)
	}

	if c.Simulator.RefreshJitter < 0 || c.Simulator.BroadcastJitter < 0 {
		add("simulator jitter bounds must not be negative")
	}
	if c.Simulator.RefreshEnabled && c.Simulator.RefreshInterval <= 0 {
		add("simulator.refresh_interval must be positive")
	}
	if c.Simulator.MaxSpeed < 0 {
		add("simulator.max_speed must not be negative")
	}

	if c.AIS.Enabled {
		if c.AIS.BaseURL == "" {
			add("ais.base_url is required when ais.enabled")
		}
		if c.AIS.Timeout <= 0 {
			add("ais.timeout must be positive")
		}
	}

	if _, ok := vessel.ParseRole(c.Auth.AnonymousRole); c.Auth.AllowAnonymous && !ok {
		add("auth.anonymous_role %q is not a known role", c.Auth.AnonymousRole)
	}

	for _, name := range []string{"vessels", "ships", "analyst", "health"} {
		ch, _ := c.Channel(name)
		if ch.Disabled {
			continue
		}
		if ch.Interval <= 0 {
			add("channels.%s.interval must be positive", name)
		}
		switch ch.Source {
		case SourceSimulated, SourceStore:
		case SourceAIS:
			if !c.AIS.Enabled {
				add("channels.%s.source is ais but ais.enabled is false", name)
			}
		default:
			add("channels.%s.source %q must be one of %s", name, ch.Source,
				strings.Join([]string{SourceSimulated, SourceAIS, SourceStore}, ", "))
		}
		if err := ch.BBox.Validate(); err != nil {
			add("channels.%s.bbox: %v", name, err)
		}
	}

	return errors.Join(errs...)
}
