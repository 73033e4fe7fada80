package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets all MAVI_ variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "MAVI_") {
			key := strings.SplitN(kv, "=", 2)[0]
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Client.Timeout != 60*time.Second {
		t.Errorf("Client.Timeout = %s, want 60s", cfg.Client.Timeout)
	}
	if cfg.MCP.Port != 8080 {
		t.Errorf("MCP.Port = %d, want 8080", cfg.MCP.Port)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("metrics enabled by default, want disabled")
	}
	if cfg.Observability.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want /metrics", cfg.Observability.Metrics.Path)
	}
	if cfg.Debug.Level != "INFO" {
		t.Errorf("Debug.Level = %q, want INFO", cfg.Debug.Level)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
client:
  api_key: yaml-key
  base_url: http://localhost:9090
  timeout: 30s
observability:
  metrics:
    enabled: true
    port: 9999
debug:
  categories: client,streaming
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Client.APIKey != "yaml-key" {
		t.Errorf("APIKey = %q", cfg.Client.APIKey)
	}
	if cfg.Client.BaseURL != "http://localhost:9090" {
		t.Errorf("BaseURL = %q", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s", cfg.Client.Timeout)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.Port != 9999 {
		t.Errorf("Metrics = %+v", cfg.Observability.Metrics)
	}
	// Unset fields keep defaults.
	if cfg.MCP.Port != 8080 {
		t.Errorf("MCP.Port = %d, want default 8080", cfg.MCP.Port)
	}
	if cfg.Debug.Categories != "client,streaming" {
		t.Errorf("Debug.Categories = %q", cfg.Debug.Categories)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("client:\n  api_key: yaml-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MAVI_API_KEY", "env-key")
	t.Setenv("MAVI_BASE_URL", "http://env:1234")
	t.Setenv("MAVI_TIMEOUT", "90s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Client.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Client.APIKey)
	}
	if cfg.Client.BaseURL != "http://env:1234" {
		t.Errorf("BaseURL = %q", cfg.Client.BaseURL)
	}
	if cfg.Client.Timeout != 90*time.Second {
		t.Errorf("Timeout = %s", cfg.Client.Timeout)
	}
}

func TestLoad_APIKeyFileReference(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.txt")
	if err := os.WriteFile(keyPath, []byte("  secret-from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	content := "client:\n  api_key_file: " + keyPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Client.APIKey != "secret-from-file" {
		t.Errorf("APIKey = %q, want trimmed file content", cfg.Client.APIKey)
	}
}

func TestLoad_MissingAPIKeyFails(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("client: {}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() succeeded without api_key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing key", func(c *Config) { c.Client.APIKey = "" }, true},
		{"negative timeout", func(c *Config) { c.Client.Timeout = -time.Second }, true},
		{"bad mcp port", func(c *Config) { c.MCP.Port = 0 }, true},
		{"metrics enabled bad port", func(c *Config) {
			c.Observability.Metrics.Enabled = true
			c.Observability.Metrics.Port = 0
		}, true},
		{"bad debug level", func(c *Config) { c.Debug.Level = "SHOUT" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Client.APIKey = "k"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
