package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: a lookup over a fixed environment
func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

// TestDefault_IsValid verifies the built-in configuration passes validation
func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Scrape.IsHeadless())
	assert.Equal(t, 10, cfg.Scrape.BatchSize)
}

// TestApplyDefaults_KeepsSetFields verifies defaults only fill unset fields
func TestApplyDefaults_KeepsSetFields(t *testing.T) {
	headless := false
	cfg := Config{
		Storage: StorageConfig{Driver: DriverMySQL, Database: "news"},
		Scrape:  ScrapeConfig{BatchSize: 25, Headless: &headless},
	}

	require.NoError(t, cfg.applyDefaults())

	assert.Equal(t, DriverMySQL, cfg.Storage.Driver)
	assert.Equal(t, "news", cfg.Storage.Database)
	assert.Equal(t, "localhost", cfg.Storage.Host)
	assert.Equal(t, 25, cfg.Scrape.BatchSize)
	assert.Equal(t, 10*time.Second, cfg.Scrape.RevealTimeout)
	assert.False(t, cfg.Scrape.IsHeadless())
}

// TestApplyEnv verifies COINSCRAPE_* variables override file values
func TestApplyEnv(t *testing.T) {
	cfg := Default()

	cfg.ApplyEnv(envOf(map[string]string{
		"COINSCRAPE_DB_DRIVER":   "mysql",
		"COINSCRAPE_DB_HOST":     "db.internal",
		"COINSCRAPE_DB_USER":     "scraper",
		"COINSCRAPE_DB_PASSWORD": "secret",
		"COINSCRAPE_DB_NAME":     "news",
		"COINSCRAPE_LOG_LEVEL":   "debug",
	}))

	assert.Equal(t, "mysql", cfg.Storage.Driver)
	assert.Equal(t, "db.internal", cfg.Storage.Host)
	assert.Equal(t, "scraper", cfg.Storage.User)
	assert.Equal(t, "secret", cfg.Storage.Password)
	assert.Equal(t, "news", cfg.Storage.Database)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "coindesk.db", cfg.Storage.DSN, "Unset variables should leave values alone")
}

// TestValidate verifies each invalid setting maps to its sentinel error
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }, ErrInvalidDriver},
		{"sqlite without dsn", func(c *Config) { c.Storage.DSN = "" }, ErrMissingDSN},
		{"mysql without database", func(c *Config) {
			c.Storage.Driver = DriverMySQL
			c.Storage.Database = ""
		}, ErrMissingDatabase},
		{"bad source", func(c *Config) { c.Scrape.Source = "api" }, ErrInvalidSource},
		{"zero batch", func(c *Config) { c.Scrape.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative concurrency", func(c *Config) { c.Scrape.Concurrency = -1 }, ErrInvalidConcurrency},
		{"negative rate", func(c *Config) { c.Scrape.RequestsPerSecond = -2 }, ErrInvalidRate},
		{"zero fetch timeout", func(c *Config) { c.Scrape.FetchTimeout = 0 }, ErrInvalidTimeout},
		{"bad timezone", func(c *Config) { c.Scrape.Timezone = "Mars/Olympus" }, ErrInvalidTimezone},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

// TestLocation verifies the configured timezone is loaded
func TestLocation(t *testing.T) {
	s := ScrapeConfig{Timezone: "America/New_York"}

	loc, err := s.Location()

	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}
