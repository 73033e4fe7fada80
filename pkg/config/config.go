// Package config provides unified configuration for the Mavi commands.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (MAVI_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the Mavi commands.
type Config struct {
	Client        ClientConfig        `yaml:"client"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ClientConfig holds Mavi API client settings.
type ClientConfig struct {
	BaseURL    string        `yaml:"base_url"`     // default: the production backend
	APIKey     string        `yaml:"api_key"`      // required
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // buffered requests, default: 60s
}

// MCPConfig holds settings for the MCP tool server.
type MCPConfig struct {
	Port int `yaml:"port"` // default: 8080
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: false
	Port    int    `yaml:"port"`    // default: 9091
	Path    string `yaml:"path"`    // default: "/metrics"
}

// DebugConfig holds debug logging settings.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, e.g. "client,streaming"
	Level      string `yaml:"level"`      // ERROR, WARN, INFO, DEBUG, TRACE
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Client: ClientConfig{
			Timeout: 60 * time.Second,
		},
		MCP: MCPConfig{
			Port: 8080,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: false,
				Port:    9091,
				Path:    "/metrics",
			},
		},
		Debug: DebugConfig{
			Level: "INFO",
		},
	}
}
