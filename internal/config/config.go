// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"sync"

	"ocpi-cost/internal/errors"
	"ocpi-cost/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Pricing contains pricing configuration
	Pricing PricingConfig `json:"pricing"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// PricingConfig contains pricing-related settings
type PricingConfig struct {
	// DefaultOCPIVersion is the engine used when none is requested
	DefaultOCPIVersion string `json:"default_ocpi_version"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (text, json)
	DefaultFormat string `json:"default_format"`

	// ShowDetails shows the per-dimension breakdown
	ShowDetails bool `json:"show_details"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Version: "1",
		Pricing: PricingConfig{
			DefaultOCPIVersion: "2.2.1",
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ShowDetails:   false,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads a configuration file
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(errors.TypeConfig, "reading config file", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.TypeConfig, "parsing config file", err)
	}
	return cfg, nil
}

var (
	mu      sync.RWMutex
	current = Default()
)

// Get returns the current configuration
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces the current configuration
func Set(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}
