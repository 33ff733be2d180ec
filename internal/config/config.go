// Package config loads the server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/rmacdonaldsmith/ledgerstream-go/internal/httpapi"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/ledger"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/logging"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/stream"
	"github.com/rmacdonaldsmith/ledgerstream-go/internal/telemetry"
)

// Prefix is prepended to every environment variable name.
const Prefix = "LEDGERSTREAM_"

// Config is the complete server configuration.
type Config struct {
	Server    httpapi.Config
	Ledger    ledger.Config
	Stream    stream.Config `envPrefix:"STREAM_"`
	Telemetry telemetry.Config

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom reads the configuration from environ, a map of variable names to
// values. A nil map reads the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("ledger config: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: %q", logging.ErrUnknownFormat, c.LogFormat)
	}
	return nil
}
