// Package config loads kgchat's environment configuration. A .env file
// in the working directory is read first when present; real environment
// variables win.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything tunable from the environment.
type Config struct {
	// BaseURL is the backend's address.
	BaseURL string `env:"KGCHAT_BASE_URL" envDefault:"http://127.0.0.1:5000"`

	// RetrievalK is how many evidence results the sidecar requests.
	RetrievalK int `env:"KGCHAT_RETRIEVAL_K" envDefault:"5"`

	// MaxRows caps graph-query result rows on answer requests.
	MaxRows int `env:"KGCHAT_MAX_ROWS" envDefault:"200"`

	// IdleWarn is the window without stream chunks before a non-fatal
	// stall notice.
	IdleWarn time.Duration `env:"KGCHAT_IDLE_WARN" envDefault:"30s"`

	// StreamCeiling is the absolute limit for one answer stream.
	StreamCeiling time.Duration `env:"KGCHAT_STREAM_CEILING" envDefault:"5m"`

	// LogFile receives structured logs. The TUI logs to file only, so
	// console output never tears the interface.
	LogFile string `env:"KGCHAT_LOG_FILE" envDefault:"kgchat.log"`

	// Debug lowers the log level to debug.
	Debug bool `env:"KGCHAT_DEBUG" envDefault:"false"`
}

// Load reads .env (if present) and the environment into a Config.
func Load() (Config, error) {
	// Missing .env is fine; the environment alone is a valid source.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: KGCHAT_BASE_URL must not be empty")
	}
	if c.RetrievalK < 1 {
		return fmt.Errorf("config: KGCHAT_RETRIEVAL_K must be positive, got %d", c.RetrievalK)
	}
	if c.MaxRows < 1 {
		return fmt.Errorf("config: KGCHAT_MAX_ROWS must be positive, got %d", c.MaxRows)
	}
	if c.IdleWarn <= 0 || c.StreamCeiling <= 0 {
		return fmt.Errorf("config: idle warn and stream ceiling must be positive")
	}
	if c.IdleWarn >= c.StreamCeiling {
		return fmt.Errorf("config: idle warn %s must be below the stream ceiling %s", c.IdleWarn, c.StreamCeiling)
	}
	return nil
}
