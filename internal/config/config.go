// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file looked up in the current directory.
const DefaultFile = "pursuit.toml"

// Config represents the pursuit configuration.
type Config struct {
	Loop      LoopFile        `toml:"loop"`
	Driver    DriverConfig    `toml:"driver"`
	Storage   StorageConfig   `toml:"storage"`
	NATS      NATSConfig      `toml:"nats"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// LoopFile is the [loop] section. It carries the run configuration plus the
// random seed, which is not part of the run state.
type LoopFile struct {
	MaxIterations     int    `toml:"max_iterations"`
	AllowAssumptions  bool   `toml:"allow_assumptions"`
	MaxIdleIterations int    `toml:"max_idle_iterations"`
	Seed              uint64 `toml:"seed"` // 0 = derive from clock
}

// DriverConfig contains scheduler settings.
type DriverConfig struct {
	Interval string `toml:"interval"` // Delay between scheduled steps (e.g. "750ms")
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path string `toml:"path"` // Base directory for sessions, checkpoints and the archive
}

// NATSConfig contains event fan-out settings.
type NATSConfig struct {
	URLEnv  string `toml:"url_env"` // Env var holding the server URL (empty URL = disabled)
	Subject string `toml:"subject"` // Subject prefix
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Protocol string `toml:"protocol"` // grpc, http or noop
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
}

// New creates a new config with defaults.
func New() *Config {
	def := DefaultLoop()
	return &Config{
		Loop: LoopFile{
			MaxIterations:     def.MaxIterations,
			AllowAssumptions:  def.AllowAssumptions,
			MaxIdleIterations: def.MaxIdleIterations,
		},
		Driver: DriverConfig{
			Interval: "750ms",
		},
		Storage: StorageConfig{
			Path: "~/.local/pursuit",
		},
		NATS: NATSConfig{
			URLEnv:  "PURSUIT_NATS_URL",
			Subject: "pursuit.runs",
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads configuration from pursuit.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return LoadFile(filepath.Join(cwd, DefaultFile))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := c.RunLoop().Validate(); err != nil {
		return err
	}
	if _, err := c.Interval(); err != nil {
		return err
	}
	return nil
}

// RunLoop returns the run configuration carried by the [loop] section.
func (c *Config) RunLoop() Loop {
	return Loop{
		MaxIterations:     c.Loop.MaxIterations,
		AllowAssumptions:  c.Loop.AllowAssumptions,
		MaxIdleIterations: c.Loop.MaxIdleIterations,
	}
}

// Interval returns the parsed scheduler interval.
func (c *Config) Interval() (time.Duration, error) {
	if c.Driver.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Driver.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid driver interval %q: %w", c.Driver.Interval, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid driver interval %q: must not be negative", c.Driver.Interval)
	}
	return d, nil
}

// StoragePath returns the storage directory with ~ expanded.
func (c *Config) StoragePath() string {
	path := c.Storage.Path
	if path == "" {
		path = "~/.local/pursuit"
	}
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return path
}

// GetNATSURL returns the NATS server URL from the configured environment variable.
// An empty result disables publishing.
func (c *Config) GetNATSURL() string {
	if c.NATS.URLEnv == "" {
		return ""
	}
	return os.Getenv(c.NATS.URLEnv)
}
