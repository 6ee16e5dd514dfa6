// Package config loads terminal configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for one terminal instance.
type Config struct {
	Port string `envconfig:"PORT" default:"8090"`

	// External collaborators.
	ReaderURL     string        `envconfig:"READER_URL" default:"http://127.0.0.1:8081"`
	LedgerURL     string        `envconfig:"LEDGER_URL" default:"http://127.0.0.1:8000"`
	ReaderTimeout time.Duration `envconfig:"READER_TIMEOUT" default:"15s"`
	LedgerTimeout time.Duration `envconfig:"LEDGER_TIMEOUT" default:"15s"`

	// Empty RedisURL keeps nonce tracking and events in process, for
	// single-terminal deployments.
	RedisURL string `envconfig:"REDIS_URL" default:""`

	// ConversionRate is the fixed VND-per-point ratio used for previews and
	// redeem eligibility. The ledger recomputes deltas at commit.
	ConversionRate int64 `envconfig:"CONVERSION_RATE" default:"1000"`

	// DefaultPin is written to a card after an admin unblock.
	DefaultPin string `envconfig:"DEFAULT_PIN" default:"123456"`

	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"5m"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load processes configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return cfg, nil
}
