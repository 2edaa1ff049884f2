// Package config holds the runtime configuration for cartloop: catalog mode,
// vendor set, reasoning backend, retry policy, validation thresholds, and
// storage paths.
package config

import (
	"time"

	"github.com/cartloop/cartloop/internal/catalog"
	"github.com/cartloop/cartloop/internal/retry"
)

// CatalogMode selects the catalog gateway implementation.
type CatalogMode string

const (
	// CatalogModeSim serves variants from the embedded seed data.
	CatalogModeSim CatalogMode = "sim"
	// CatalogModeHTTP queries per-vendor HTTP endpoints.
	CatalogModeHTTP CatalogMode = "http"
)

// Config is the root configuration.
type Config struct {
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// CatalogConfig configures the catalog gateway.
type CatalogConfig struct {
	Mode    CatalogMode `mapstructure:"mode"`
	BaseURL string      `mapstructure:"base_url"`
	// SeedFile optionally overrides the embedded seed in sim mode.
	SeedFile string   `mapstructure:"seed_file"`
	Vendors  []string `mapstructure:"vendors"`
}

// ReasoningConfig configures the Ollama-backed reasoning gateway.
type ReasoningConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
	// MaxReReasoning bounds re-invocations of reasoning after a validation
	// rejection before the item is marked failed.
	MaxReReasoning int `mapstructure:"max_re_reasoning"`
}

// RetryConfig configures the retry executor for external calls.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Jitter       bool          `mapstructure:"jitter"`
}

// Policy converts the configuration into an executor retry policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  c.MaxAttempts,
		InitialDelay: c.InitialDelay,
		Multiplier:   c.Multiplier,
		MaxDelay:     c.MaxDelay,
		Jitter:       c.Jitter,
	}
}

// ValidatorConfig configures the decision validator.
type ValidatorConfig struct {
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`
}

// StoreConfig configures the checkpoint store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig toggles OpenTelemetry spans. When enabled the engine and
// collector resolve a tracer from the global provider; the host process is
// expected to have registered one.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultConfig returns the built-in defaults: simulated catalog over the
// standard vendor set, local Ollama, and the stock retry policy.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Mode:    CatalogModeSim,
			Vendors: catalog.DefaultVendors,
		},
		Reasoning: ReasoningConfig{
			Host:           "http://localhost:11434",
			Model:          "qwen2.5:7b",
			MaxReReasoning: 2,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			Multiplier:   2.0,
			MaxDelay:     32 * time.Second,
			Jitter:       true,
		},
		Validator: ValidatorConfig{
			ConfidenceFloor: 0.6,
		},
		Store: StoreConfig{
			Path: "cartloop.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}
