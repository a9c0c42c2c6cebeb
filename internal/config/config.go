package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const minSecretLen = 32

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage: memory:, sqlite:file:... or postgres://...
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:file:storefront.db?_pragma=busy_timeout(5000)"`
	Namespace   string `env:"STORAGE_NAMESPACE" envDefault:"storefront"`

	// Auth
	JWTSecret string `env:"JWT_SECRET,required"`

	// Metrics
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsToken   string `env:"METRICS_TOKEN"`

	// History and recommendations
	DefaultMarket     string        `env:"DEFAULT_MARKET" envDefault:"uk"`
	ViewHistorySize   int           `env:"VIEW_HISTORY_SIZE" envDefault:"20"`
	SearchHistorySize int           `env:"SEARCH_HISTORY_SIZE" envDefault:"10"`
	AutosaveInterval  time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"1s"`

	// Idle sessions are flushed and dropped from memory on this cron schedule.
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
	SessionSweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@every 1m"`
}

// Load reads an optional .env file (or the files named in ENV_FILE) and then
// the process environment. Real environment variables win over the file.
func Load() (Config, error) {
	files := []string{".env"}
	if f := os.Getenv("ENV_FILE"); f != "" {
		files = []string{f}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d chars", minSecretLen)
	}
	if c.ViewHistorySize < 1 || c.SearchHistorySize < 1 {
		return errors.New("history sizes must be positive")
	}
	if c.AutosaveInterval <= 0 {
		return errors.New("AUTOSAVE_INTERVAL must be positive")
	}
	if c.SessionIdleTTL <= 0 {
		return errors.New("SESSION_IDLE_TTL must be positive")
	}
	return nil
}
