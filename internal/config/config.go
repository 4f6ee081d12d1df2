// Package config loads turnkeeper settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds simulator settings.
type Config struct {
	// Seed for the dice roller; 0 picks a random seed.
	Seed       int64  `env:"TURNKEEPER_SEED" envDefault:"0"`
	MaxTurns   int    `env:"TURNKEEPER_MAX_TURNS" envDefault:"200"`
	Encounters int    `env:"TURNKEEPER_ENCOUNTERS" envDefault:"1"`
	Parallel   int    `env:"TURNKEEPER_PARALLEL" envDefault:"4"`
	Monsters   int    `env:"TURNKEEPER_MONSTERS" envDefault:"3"`
	LogLevel   string `env:"TURNKEEPER_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"TURNKEEPER_LOG_FORMAT" envDefault:"console"`

	OTelEnabled  bool    `env:"TURNKEEPER_OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string  `env:"TURNKEEPER_OTEL_ENDPOINT"`
	OTelSample   float64 `env:"TURNKEEPER_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Load parses the environment into Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c Config) Validate() error {
	if c.MaxTurns <= 0 {
		return fmt.Errorf("TURNKEEPER_MAX_TURNS must be positive, got %d", c.MaxTurns)
	}
	if c.Encounters <= 0 {
		return fmt.Errorf("TURNKEEPER_ENCOUNTERS must be positive, got %d", c.Encounters)
	}
	if c.Parallel <= 0 {
		return fmt.Errorf("TURNKEEPER_PARALLEL must be positive, got %d", c.Parallel)
	}
	if c.Monsters <= 0 {
		return fmt.Errorf("TURNKEEPER_MONSTERS must be positive, got %d", c.Monsters)
	}
	if c.OTelSample <= 0 || c.OTelSample > 1 {
		return fmt.Errorf("TURNKEEPER_OTEL_SAMPLE_RATIO must be within (0, 1], got %g", c.OTelSample)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("TURNKEEPER_LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}
