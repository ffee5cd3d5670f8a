// Package config provides configuration loading
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// overridesPath is the optional overrides file applied to every
// collector config. The CLI sets it once before collectors are built.
var overridesPath string

// SetOverridesPath points Apply at a shared overrides file
func SetOverridesPath(path string) {
	overridesPath = path
}

// Apply layers the shared overrides file and environment on top of cfg
func Apply(cfg *Config) error {
	return LoadFile(overridesPath, cfg)
}

// LoadFile layers a YAML overrides file onto an already-populated
// config, with HARVEST_-prefixed environment variables taking
// precedence (e.g. HARVEST_RELIABILITY_CALLS_PER_MINUTE=10). The
// current cfg values act as defaults; an empty path applies
// environment overrides only.
func LoadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Seed viper with the current values so file and env overrides
	// merge onto them instead of zeroing absent fields.
	defaults, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config defaults: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return fmt.Errorf("failed to seed config defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.Validate()
}

// Save saves a configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// APIKey resolves a provider API key from the environment. Required
// keys that are missing produce an error naming the variable so the
// operator knows what to set.
func APIKey(envVar string, required bool) (string, error) {
	value := os.Getenv(envVar)
	if required && value == "" {
		return "", fmt.Errorf("required environment variable %s not set", envVar)
	}
	return value, nil
}
