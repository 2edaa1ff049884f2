package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/cartloop/cartloop/internal/types"
)

// Load reads configuration from the given YAML file, layered over the
// defaults, with CARTLOOP_* environment overrides (CARTLOOP_REASONING_HOST
// overrides reasoning.host). A missing file with an empty path is not an
// error; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CARTLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "config file not readable", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "unmarshal config", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every default so partial config files and env
// overrides merge cleanly.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()

	v.SetDefault("catalog.mode", string(def.Catalog.Mode))
	v.SetDefault("catalog.base_url", def.Catalog.BaseURL)
	v.SetDefault("catalog.seed_file", def.Catalog.SeedFile)
	v.SetDefault("catalog.vendors", def.Catalog.Vendors)

	v.SetDefault("reasoning.host", def.Reasoning.Host)
	v.SetDefault("reasoning.model", def.Reasoning.Model)
	v.SetDefault("reasoning.max_re_reasoning", def.Reasoning.MaxReReasoning)

	v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", def.Retry.InitialDelay)
	v.SetDefault("retry.multiplier", def.Retry.Multiplier)
	v.SetDefault("retry.max_delay", def.Retry.MaxDelay)
	v.SetDefault("retry.jitter", def.Retry.Jitter)

	v.SetDefault("validator.confidence_floor", def.Validator.ConfidenceFloor)

	v.SetDefault("store.path", def.Store.Path)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	v.SetDefault("tracing.enabled", def.Tracing.Enabled)
}
