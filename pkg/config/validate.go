package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Client.APIKey == "" {
		errs = append(errs, fmt.Errorf("client.api_key is required (or set MAVI_API_KEY)"))
	}

	if c.Client.Timeout < 0 {
		errs = append(errs, fmt.Errorf("client.timeout must be >= 0, got %s", c.Client.Timeout))
	}

	if c.MCP.Port <= 0 {
		errs = append(errs, fmt.Errorf("mcp.port must be > 0, got %d", c.MCP.Port))
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Port <= 0 {
		errs = append(errs, fmt.Errorf("observability.metrics.port must be > 0, got %d", c.Observability.Metrics.Port))
	}

	switch c.Debug.Level {
	case "", "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE":
		// valid
	default:
		errs = append(errs, fmt.Errorf("debug.level must be one of ERROR, WARN, INFO, DEBUG, TRACE, got %q", c.Debug.Level))
	}

	return errors.Join(errs...)
}
