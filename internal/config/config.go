// Package config loads the client configuration: defaults, then an optional
// YAML file, then environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the CLI needs to assemble the cart engine.
type Config struct {
	// APIBaseURL is the root of the remote cart API.
	APIBaseURL string
	// StoragePath is the SQLite file holding the cart snapshot and session
	// record.
	StoragePath string
	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration
}

type fileConfig struct {
	APIBaseURL     string `yaml:"api_base_url"`
	StoragePath    string `yaml:"storage_path"`
	RequestTimeout string `yaml:"request_timeout"`
}

// Default returns the built-in configuration, pointing at the local
// storefront backend.
func Default() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8001/api",
		StoragePath:    "cart.db",
		RequestTimeout: 10 * time.Second,
	}
}

// Load builds the effective configuration. An empty path skips the file
// step; a non-empty path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := cfg.apply(fc); err != nil {
			return nil, err
		}
	}

	if err := cfg.apply(fileConfig{
		APIBaseURL:     os.Getenv("CART_API_URL"),
		StoragePath:    os.Getenv("CART_STORAGE_PATH"),
		RequestTimeout: os.Getenv("CART_REQUEST_TIMEOUT"),
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) apply(fc fileConfig) error {
	if fc.APIBaseURL != "" {
		c.APIBaseURL = fc.APIBaseURL
	}
	if fc.StoragePath != "" {
		c.StoragePath = fc.StoragePath
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout %q: %w", fc.RequestTimeout, err)
		}
		c.RequestTimeout = d
	}
	return nil
}
