// Package config loads application settings from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	// DatabaseURL selects postgres; empty falls back to the in-memory
	// store, which is only useful for development.
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret     string        `env:"JWT_SECRET"`
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" envDefault:"12h"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"1s"`

	// DefaultUsername and DefaultPassword bootstrap the first account when
	// the user store is empty.
	DefaultUsername string `env:"DEFAULT_USERNAME" envDefault:"admin"`
	DefaultPassword string `env:"DEFAULT_PASSWORD"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load reads .env if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the application cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.TokenLifetime <= 0 {
		return errors.New("config: TOKEN_LIFETIME must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("config: HEARTBEAT_INTERVAL must be positive")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
