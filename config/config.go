// Package config provides configuration settings for the link shortener.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"go-link-shortener/kv"
)

// Config holds the configuration settings for the application.
type Config struct {
	Env       string    `yaml:"env" env:"ENV" env-default:"dev"`
	Server    Server    `yaml:"server"`
	Shortener Shortener `yaml:"shortener"`
	Storage   Storage   `yaml:"storage"`
	Observer  Observer  `yaml:"observer"`
	UserAgent UserAgent `yaml:"useragent"`
}

// Server holds HTTP server settings.
type Server struct {
	Port             int           `yaml:"port" env:"SERVER_PORT" env-default:"3000"`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"5s"`
	RateLimit        int           `yaml:"rate_limit" env:"SERVER_RATE_LIMIT" env-default:"10"`
	RatePeriod       time.Duration `yaml:"rate_period" env:"SERVER_RATE_PERIOD" env-default:"1s"`
	DisableRateLimit bool          `yaml:"disable_rate_limit" env:"SERVER_DISABLE_RATE_LIMIT" env-default:"false"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Shortener holds the settings of shortcode issuance.
type Shortener struct {
	BaseURL                string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:3000"`
	DefaultValidityMinutes int    `yaml:"default_validity_minutes" env:"DEFAULT_VALIDITY_MINUTES" env-default:"30"`
	CodeLength             int    `yaml:"code_length" env:"CODE_LENGTH" env-default:"6"`
	MaxAttempts            int    `yaml:"max_attempts" env:"MAX_ATTEMPTS" env-default:"5"`
	MaxBatchSize           int    `yaml:"max_batch_size" env:"MAX_BATCH_SIZE" env-default:"5"`
}

// Storage selects the key-value backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`
	Path   string `yaml:"path" env:"STORAGE_PATH" env-default:"urls.db"`
	Key    string `yaml:"key" env:"STORAGE_KEY" env-default:"shortenedUrls"`
}

// Observer bounds the in-memory diagnostics log. Zero keeps every entry.
type Observer struct {
	MaxEntries int `yaml:"max_entries" env:"OBSERVER_MAX_ENTRIES" env-default:"0"`
}

// UserAgent selects the device detection rules. An empty path uses the rules bundled with uap-go.
type UserAgent struct {
	RegexesPath string `yaml:"regexes_path" env:"UA_REGEXES_PATH"`
}

// DefaultConfig returns the default configuration settings without reading the environment.
func DefaultConfig() *Config {
	return &Config{
		Env: "dev",
		Server: Server{
			Port:             3000,
			RequestTimeout:   5 * time.Second,
			RateLimit:        10,
			RatePeriod:       time.Second,
			DisableRateLimit: false,
			ShutdownTimeout:  10 * time.Second,
		},
		Shortener: Shortener{
			BaseURL:                "http://localhost:3000",
			DefaultValidityMinutes: 30,
			CodeLength:             6,
			MaxAttempts:            5,
			MaxBatchSize:           5,
		},
		Storage: Storage{
			Driver: kv.DriverSQLite,
			Path:   "urls.db",
			Key:    "shortenedUrls",
		},
	}
}

// Load reads an optional .env file, then the yaml file at path when it exists,
// with environment variables taking precedence. Without a file only the
// environment and defaults are used.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("%s: cannot read config: %w", op, err)
			}
			return &cfg, cfg.Validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: cannot read config from environment: %w", op, err)
	}
	return &cfg, cfg.Validate()
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if !c.Server.DisableRateLimit && (c.Server.RateLimit <= 0 || c.Server.RatePeriod <= 0) {
		errs = append(errs, errors.New("server.rate_limit and server.rate_period must be positive"))
	}
	if c.Shortener.BaseURL == "" {
		errs = append(errs, errors.New("shortener.base_url is required"))
	}
	if c.Shortener.DefaultValidityMinutes <= 0 {
		errs = append(errs, errors.New("shortener.default_validity_minutes must be positive"))
	}
	if c.Shortener.CodeLength <= 0 {
		errs = append(errs, errors.New("shortener.code_length must be positive"))
	}
	if c.Shortener.MaxAttempts <= 0 {
		errs = append(errs, errors.New("shortener.max_attempts must be positive"))
	}
	if c.Shortener.MaxBatchSize <= 0 {
		errs = append(errs, errors.New("shortener.max_batch_size must be positive"))
	}
	switch c.Storage.Driver {
	case kv.DriverMemory, kv.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Storage.Driver == kv.DriverSQLite && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required for the sqlite driver"))
	}
	if c.Observer.MaxEntries < 0 {
		errs = append(errs, errors.New("observer.max_entries must not be negative"))
	}

	return errors.Join(errs...)
}
