// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

// #region imports
import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// #endregion

// #region config

// Config is the full runtime configuration.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// PublicBaseURL is the externally reachable base URL advertised to the
	// registry as this service's debate endpoint.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	RecordsDBPath string `env:"RECORDS_DB_PATH" envDefault:"missionary.db"`
	FunnelDBPath  string `env:"FUNNEL_DB_PATH" envDefault:"funnel.db"`

	AnthropicAPIKey   string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel    string        `env:"ANTHROPIC_MODEL"`
	AnthropicBaseURL  string        `env:"ANTHROPIC_BASE_URL"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`

	// RegistryURL empty disables on-chain registration; the registration
	// gate then reports rejected outcomes and retries on later turns.
	RegistryURL     string        `env:"REGISTRY_URL"`
	PinURL          string        `env:"PIN_URL"`
	RegistryTimeout time.Duration `env:"REGISTRY_TIMEOUT" envDefault:"30s"`

	// RandSeed fixes tactic selection for reproducible runs; 0 seeds from
	// the clock.
	RandSeed int64 `env:"RAND_SEED" envDefault:"0"`
}

// #endregion config

// #region load

// Load reads the .env file when present, then parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[CONFIG] no .env file found, using system environment")
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	return cfg, nil
}

// Seed returns the configured seed, or the current time when unset.
func (c Config) Seed() int64 {
	if c.RandSeed != 0 {
		return c.RandSeed
	}
	return time.Now().UnixNano()
}

// #endregion load
