package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, MAVI_CONFIG env, ./config.yaml, /etc/mavi/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. MAVI_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/mavi/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("MAVI_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/mavi/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps MAVI_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAVI_API_KEY"); v != "" {
		cfg.Client.APIKey = v
	}
	if v := os.Getenv("MAVI_BASE_URL"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv("MAVI_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.Timeout = d
		}
	}
	if v := os.Getenv("MAVI_MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MCP.Port = port
		}
	}
	if v := os.Getenv("MAVI_METRICS"); v != "" {
		cfg.Observability.Metrics.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("MAVI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Observability.Metrics.Port = port
		}
	}
	if v := os.Getenv("MAVI_DEBUG"); v != "" {
		cfg.Debug.Categories = v
	}
	if v := os.Getenv("MAVI_LOG_LEVEL"); v != "" {
		cfg.Debug.Level = v
	}
}

// resolveFileReferences reads _file fields and populates the
// corresponding value fields. The value field wins when both are set.
func resolveFileReferences(cfg *Config) error {
	if cfg.Client.APIKeyFile != "" && cfg.Client.APIKey == "" {
		val, err := readSecretFile(cfg.Client.APIKeyFile)
		if err != nil {
			return fmt.Errorf("client.api_key_file: %w", err)
		}
		cfg.Client.APIKey = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
