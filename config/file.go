package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFilePath returns the default config file location,
// ~/.coinscrape/config.yaml.
func ConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".coinscrape", "config.yaml"), nil
}

// LoadConfigFile reads the config file at path. Returns nil if the file
// doesn't exist (not an error). Returns error if the file exists but cannot
// be parsed.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Load builds the configuration with precedence:
// 1. Environment variables (highest priority)
// 2. Configuration file (path, or ~/.coinscrape/config.yaml when empty)
// 3. Default values (lowest priority)
//
// An explicit path that does not exist is an error; a missing default file
// is not. Command-line flags are applied by the caller afterwards.
func Load(path string, getenv func(string) string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = ConfigFilePath(); err != nil {
			return nil, err
		}
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if explicit {
			return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		cfg = &Config{}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	return cfg, nil
}

// WriteDefaultConfigFile writes the default configuration to path. An
// existing file is left alone unless force is set. Reports whether a file
// was written.
func WriteDefaultConfigFile(path string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}

	return true, nil
}
