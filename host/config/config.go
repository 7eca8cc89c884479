// Package config loads gatemon configuration using koanf.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before mapping them to keys.
// GATEMON_SERIAL_DEVICE sets serial.device.
const EnvPrefix = "GATEMON_"

// ErrInvalidConfig is returned when a loaded value is out of range
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full gatemon configuration
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Serial   SerialConfig   `koanf:"serial"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	Simulate SimulateConfig `koanf:"sim"`
}

// LogConfig controls the slog handler
type LogConfig struct {
	Level string `koanf:"level"`
}

// SerialConfig selects the port the firmware reports on
type SerialConfig struct {
	Device  string `koanf:"device"`
	Baud    int    `koanf:"baud"`
	Timeout int    `koanf:"timeout"` // milliseconds
}

// MonitorConfig controls report stream handling
type MonitorConfig struct {
	// Summary logs running stats every this many reports, 0 disables
	Summary int `koanf:"summary"`
}

// SimulateConfig drives a host-side gated loop
type SimulateConfig struct {
	Period        uint64 `koanf:"period"` // microseconds
	Work          uint64 `koanf:"work"`   // microseconds of busy work per cycle
	Jitter        uint64 `koanf:"jitter"` // extra work added every JitterEvery cycles
	JitterEvery   int    `koanf:"jitterevery"`
	Cycles        int    `koanf:"cycles"`
	Deterministic bool   `koanf:"deterministic"`
}

func defaults() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Serial: SerialConfig{
			Device:  "/dev/ttyACM0",
			Baud:    115200,
			Timeout: 100,
		},
		Monitor: MonitorConfig{
			Summary: 100,
		},
		Simulate: SimulateConfig{
			Period:      500000,
			Work:        100000,
			Jitter:      600000,
			JitterEvery: 10,
			Cycles:      40,
		},
	}
}

// Load returns compiled defaults overridden by GATEMON_* environment variables
func Load() (*Config, error) {
	k := koanf.New(".")
	cfg := defaults()

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive", ErrInvalidConfig)
	}
	if c.Serial.Timeout < 0 {
		return fmt.Errorf("%w: serial.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Monitor.Summary < 0 {
		return fmt.Errorf("%w: monitor.summary must not be negative", ErrInvalidConfig)
	}
	if c.Simulate.Cycles < 0 || c.Simulate.JitterEvery < 0 {
		return fmt.Errorf("%w: sim.cycles and sim.jitterevery must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}
