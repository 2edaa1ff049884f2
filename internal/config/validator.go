package config

import (
	"fmt"

	"github.com/cartloop/cartloop/internal/types"
)

// Validate checks a configuration for values the engine cannot run with.
func Validate(cfg *Config) error {
	switch cfg.Catalog.Mode {
	case CatalogModeSim:
		// Embedded seed needs no further settings.
	case CatalogModeHTTP:
		if cfg.Catalog.BaseURL == "" {
			return invalid("catalog.base_url is required in http mode")
		}
	default:
		return invalid(fmt.Sprintf("catalog.mode must be %q or %q, got %q",
			CatalogModeSim, CatalogModeHTTP, cfg.Catalog.Mode))
	}

	if len(cfg.Catalog.Vendors) == 0 {
		return invalid("catalog.vendors must name at least one vendor")
	}

	if cfg.Reasoning.Host == "" {
		return invalid("reasoning.host is required")
	}
	if cfg.Reasoning.Model == "" {
		return invalid("reasoning.model is required")
	}
	if cfg.Reasoning.MaxReReasoning < 0 {
		return invalid("reasoning.max_re_reasoning must not be negative")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1")
	}
	if cfg.Retry.InitialDelay < 0 {
		return invalid("retry.initial_delay must not be negative")
	}
	if cfg.Retry.Multiplier < 1.0 {
		return invalid("retry.multiplier must be at least 1.0")
	}
	if cfg.Retry.MaxDelay < cfg.Retry.InitialDelay {
		return invalid("retry.max_delay must not be below retry.initial_delay")
	}

	if cfg.Validator.ConfidenceFloor < 0 || cfg.Validator.ConfidenceFloor > 1 {
		return invalid("validator.confidence_floor must be between 0.0 and 1.0")
	}

	if cfg.Store.Path == "" {
		return invalid("store.path is required")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return invalid(fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return invalid(fmt.Sprintf("logging.format %q is not one of text, json", cfg.Logging.Format))
	}

	return nil
}

func invalid(reason string) error {
	return types.NewError(types.CONFIG_VALIDATION_FAILED, reason)
}
