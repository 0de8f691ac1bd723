// Package config handles configuration for the sync server: defaults, an
// optional JSON file, TIMEKEEPER_* environment variables and command-line
// flags, applied in that order.
package config

import (
	"errors"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the sync server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps records in memory.
//   - SecretKey: HMAC secret for signing access tokens (HS256).
//   - AccessTokenValidityDuration: lifetime of issued tokens.
//   - OTelEndpoint: OTLP/HTTP trace collector URL; empty disables tracing.
//   - IssueFor: when set, the server prints a token for this user and exits.
type Config struct {
	EndpointAddrGRPC            string        `env:"TIMEKEEPER_SERVER_ADDR"`
	DatabaseDSN                 string        `env:"TIMEKEEPER_DATABASE_DSN"`
	SecretKey                   string        `env:"TIMEKEEPER_SECRET_KEY"`
	AccessTokenValidityDuration time.Duration `env:"TIMEKEEPER_TOKEN_TTL"`
	OTelEndpoint                string        `env:"TIMEKEEPER_OTEL_ENDPOINT"`
	IssueFor                    string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 30 * 24 * time.Hour
	c.OTelEndpoint = ""
}

func (c *Config) Validate() error {
	switch {
	case c.EndpointAddrGRPC == "":
		return errors.New("config: empty gRPC address")
	case c.SecretKey == "":
		return errors.New("config: empty secret key")
	case c.AccessTokenValidityDuration <= 0:
		return errors.New("config: token validity must be positive")
	}
	return nil
}

// LoadConfig reads the process command line and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], env.ToMap(os.Environ()))
}

// Load builds a Config from args and environ.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
