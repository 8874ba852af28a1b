package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for errors using struct validation tags
// plus a few cross-field rules that tags cannot express.
//
// Validation is intentionally separate from ApplyDefaults: defaults fill in
// missing values, validation rejects values that are present but wrong.
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			// Report the first violation with its field path and failed tag
			// so the user can find the offending key.
			first := verrs[0]
			return fmt.Errorf("invalid value for %s: failed %q validation (value: %v)",
				first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("config validation: %w", err)
	}

	// Cross-field rules
	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry is enabled but no endpoint is configured")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("profiling is enabled but no endpoint is configured")
	}
	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == cfg.Server.Port {
		return fmt.Errorf("metrics port %d conflicts with the chat server port", cfg.Server.Metrics.Port)
	}

	return nil
}
