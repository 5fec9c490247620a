// Package config loads coinscrape settings from defaults, the config file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
)

// Configuration validation errors.
var (
	ErrInvalidDriver      = errors.New("storage.driver must be sqlite or mysql")
	ErrMissingDSN         = errors.New("storage.dsn is required for sqlite")
	ErrMissingDatabase    = errors.New("storage.database is required for mysql")
	ErrInvalidSource      = errors.New("scrape.source must be browser or feed")
	ErrInvalidBatchSize   = errors.New("scrape.batch_size must be at least 1")
	ErrInvalidConcurrency = errors.New("scrape.concurrency must be non-negative")
	ErrInvalidRate        = errors.New("scrape.requests_per_second must be non-negative")
	ErrInvalidTimeout     = errors.New("scrape timeouts must be positive")
	ErrInvalidTimezone    = errors.New("scrape.timezone is not a known location")
	ErrInvalidLogLevel    = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Listing sources.
const (
	SourceBrowser = "browser"
	SourceFeed    = "feed"
)

// Config represents the structure of ~/.coinscrape/config.yaml.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Scrape  ScrapeConfig  `yaml:"scrape"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and addresses the relational store. DSN is the
// sqlite file path. mysql uses DSN when it is a mysql DSN naming a database,
// and host, user, password and database otherwise.
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// ScrapeConfig holds listing and extraction settings.
type ScrapeConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Source            string        `yaml:"source"`
	FeedURL           string        `yaml:"feed_url"`
	BatchSize         int           `yaml:"batch_size"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	RevealTimeout     time.Duration `yaml:"reveal_timeout"`
	RevealPause       time.Duration `yaml:"reveal_pause"`
	Headless          *bool         `yaml:"headless"`
	Timezone          string        `yaml:"timezone"`
}

// LoggingConfig controls the log level and an optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	headless := true
	return Config{
		Storage: StorageConfig{
			Driver:   DriverSQLite,
			DSN:      "coindesk.db",
			Host:     "localhost",
			User:     "root",
			Database: "coindesk",
		},
		Scrape: ScrapeConfig{
			BaseURL:       "https://www.coindesk.com",
			Source:        SourceBrowser,
			FeedURL:       "https://www.coindesk.com/arc/outboundfeeds/rss/",
			BatchSize:     10,
			Concurrency:   10,
			FetchTimeout:  30 * time.Second,
			RevealTimeout: 10 * time.Second,
			RevealPause:   time.Second,
			Headless:      &headless,
			Timezone:      "UTC",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// applyDefaults fills every unset field from Default.
func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	return nil
}

// ApplyEnv overrides storage and logging settings from COINSCRAPE_*
// variables. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"COINSCRAPE_DB_DRIVER", &c.Storage.Driver},
		{"COINSCRAPE_DB_DSN", &c.Storage.DSN},
		{"COINSCRAPE_DB_HOST", &c.Storage.Host},
		{"COINSCRAPE_DB_USER", &c.Storage.User},
		{"COINSCRAPE_DB_PASSWORD", &c.Storage.Password},
		{"COINSCRAPE_DB_NAME", &c.Storage.Database},
		{"COINSCRAPE_LOG_LEVEL", &c.Logging.Level},
	}

	for _, o := range overrides {
		if val := getenv(o.key); val != "" {
			*o.dst = val
		}
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.DSN == "" {
			return ErrMissingDSN
		}
	case DriverMySQL:
		if c.Storage.Database == "" {
			return ErrMissingDatabase
		}
	default:
		return ErrInvalidDriver
	}

	s := c.Scrape
	if s.Source != SourceBrowser && s.Source != SourceFeed {
		return ErrInvalidSource
	}
	if s.BatchSize < 1 {
		return ErrInvalidBatchSize
	}
	if s.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if s.RequestsPerSecond < 0 {
		return ErrInvalidRate
	}
	if s.FetchTimeout <= 0 || s.RevealTimeout <= 0 || s.RevealPause < 0 {
		return ErrInvalidTimeout
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// Location returns the timezone relative listing dates are resolved in.
func (s ScrapeConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, s.Timezone)
	}
	return loc, nil
}

// IsHeadless reports whether the browser runs without a window.
func (s ScrapeConfig) IsHeadless() bool {
	return s.Headless == nil || *s.Headless
}
