package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Flight provider selections.
const (
	FlightProviderSimulated = "simulated"
	FlightProviderAmadeus   = "amadeus"
)

type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Log     LogConfig
	Search  SearchConfig
	Amadeus AmadeusConfig
}

type ServerConfig struct {
	Port               string `envconfig:"PORT" default:"8080"`
	BearerToken        string `envconfig:"API_BEARER_TOKEN" required:"true"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

type StoreConfig struct {
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	RedisURL      string        `envconfig:"REDIS_URL" required:"true"`
	MigrationsDir string        `envconfig:"MIGRATIONS_DIR" default:"migrations"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type SearchConfig struct {
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"5s"`
	FlightProvider  string        `envconfig:"FLIGHT_PROVIDER" default:"simulated"`
}

type AmadeusConfig struct {
	APIKey       string        `envconfig:"AMADEUS_API_KEY"`
	APISecret    string        `envconfig:"AMADEUS_API_SECRET"`
	BaseURL      string        `envconfig:"AMADEUS_BASE_URL" default:"https://test.api.amadeus.com"`
	Origin       string        `envconfig:"AMADEUS_ORIGIN" default:"NYC"`
	IssueTimeout time.Duration `envconfig:"TOKEN_ISSUE_TIMEOUT" default:"10s"`
}

// Enabled reports whether client credentials were supplied.
func (c AmadeusConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// SlogLevel maps LOG_LEVEL onto a slog.Level. Unknown values fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	var errs []error

	switch c.Search.FlightProvider {
	case FlightProviderSimulated:
	case FlightProviderAmadeus:
		if !c.Amadeus.Enabled() {
			errs = append(errs, errors.New("FLIGHT_PROVIDER=amadeus requires AMADEUS_API_KEY and AMADEUS_API_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FLIGHT_PROVIDER %q", c.Search.FlightProvider))
	}

	if c.Server.RateLimitPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Server.RateLimitPerMinute))
	}
	if c.Search.ProviderTimeout < 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must not be negative, got %s", c.Search.ProviderTimeout))
	}
	if c.Store.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive, got %s", c.Store.CacheTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
