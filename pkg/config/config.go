// Package config provides the unified configuration system for Harvest.
// It defines a single Config structure that every collector uses,
// ensuring consistent timeout, retry, and rate-limit behavior across
// the entire system.
//
// The configuration is organized into logical sections:
//   - Timeouts: per-request and whole-run deadlines
//   - Reliability: retry logic and provider rate limits
//   - Observability: metrics and logging
//
// Example usage:
//
//	cfg := config.NewConfig("ftse-100", "marketwatch")
//	cfg.Reliability.RetryAttempts = 5
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Config is the single unified configuration structure that all
// collectors use. Collector registrations override the defaults for
// their provider's published limits.
type Config struct {
	// Name identifies the collector instance
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// Provider names the upstream data source (e.g., "fred", "marketwatch")
	Provider string `yaml:"provider" json:"provider" mapstructure:"provider"`

	// Timeouts define request and run deadlines
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts" mapstructure:"timeouts"`

	// Reliability settings for error handling and provider limits
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability" mapstructure:"reliability"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability" mapstructure:"observability"`
}

// TimeoutConfig contains all timeout-related settings.
// These prevent operations from hanging indefinitely.
type TimeoutConfig struct {
	// Request timeout for individual provider calls
	Request time.Duration `yaml:"request" json:"request" mapstructure:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection" mapstructure:"connection"`
	// Run caps a whole collection run; sub-windows past the deadline
	// are abandoned and the run reports partial-failure when anything
	// already committed
	Run time.Duration `yaml:"run" json:"run" mapstructure:"run"`
}

// ReliabilityConfig contains reliability and error handling settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts per sub-window fetch
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts" mapstructure:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" mapstructure:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier" mapstructure:"retry_multiplier"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay" mapstructure:"max_retry_delay"`
	// CallsPerMinute limits provider calls per minute (0 = unlimited)
	CallsPerMinute int `yaml:"calls_per_minute" json:"calls_per_minute" mapstructure:"calls_per_minute"`
	// CallsPerDay limits provider calls per day (0 = unlimited)
	CallsPerDay int `yaml:"calls_per_day" json:"calls_per_day" mapstructure:"calls_per_day"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates Prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics" mapstructure:"enable_metrics"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
}

// NewConfig creates a new Config with sensible defaults. The defaults
// are conservative enough for providers that publish no limits.
func NewConfig(name, provider string) *Config {
	return &Config{
		Name:     name,
		Provider: provider,
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Run:        15 * time.Minute,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   60 * time.Second,
			CallsPerMinute:  30,
			CallsPerDay:     0,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			LogLevel:      "info",
		},
	}
}

// Validate validates the configuration for correctness.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Timeouts.Request <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if c.Timeouts.Run <= 0 {
		return fmt.Errorf("run timeout must be positive")
	}
	if c.Reliability.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1")
	}
	if c.Reliability.RetryMultiplier < 1.0 {
		return fmt.Errorf("retry_multiplier must be at least 1.0")
	}
	if c.Reliability.CallsPerMinute < 0 {
		return fmt.Errorf("calls_per_minute cannot be negative")
	}
	return nil
}

// IsRateLimited returns true if a per-minute provider limit is set
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.CallsPerMinute > 0
}

// MinInterval returns the minimum spacing between consecutive calls to
// the provider, derived from the per-minute limit.
func (r *ReliabilityConfig) MinInterval() time.Duration {
	if r.CallsPerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(r.CallsPerMinute)
}
