package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
  api_key: "secret"
log:
  log_level: "debug"
ai:
  provider: "workersai"
  account_id: "acct-123"
  timeout_ms: 30000
detection:
  threshold: 0.5
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	result, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := result.Config

	if cfg.Server.IP != "127.0.0.1" {
		t.Errorf("expected server IP 127.0.0.1, got %s", cfg.Server.IP)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.APIKey != "secret" {
		t.Errorf("expected api key secret, got %s", cfg.Server.APIKey)
	}
	if cfg.AI.TimeoutMs != 30000 {
		t.Errorf("expected ai timeout 30000, got %d", cfg.AI.TimeoutMs)
	}
	if cfg.Detection.Threshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Detection.Threshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Detection.MaxImageBytes != 10*1024*1024 {
		t.Errorf("expected default image cap, got %d", cfg.Detection.MaxImageBytes)
	}
	if result.Path != configFile {
		t.Errorf("expected path %s, got %s", configFile, result.Path)
	}
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	result, err := NewLoader().WithDotEnv(false).WithPath(missing).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if result.Path != "" {
		t.Errorf("expected empty path for missing file, got %s", result.Path)
	}
	if result.Config.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", result.Config.Server.Port)
	}
	if result.Config.Detection.ObjectModel == "" {
		t.Error("expected default object model")
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("API_KEY", "env-key")
	t.Setenv("AI_ACCOUNT_ID", "env-acct")
	t.Setenv("SERVER_PORT", "7070")

	result, err := NewLoader().WithDotEnv(false).WithPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	cfg := result.Config

	if cfg.Server.APIKey != "env-key" {
		t.Errorf("expected env api key, got %s", cfg.Server.APIKey)
	}
	if cfg.AI.AccountID != "env-acct" {
		t.Errorf("expected env account id, got %s", cfg.AI.AccountID)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
}

func TestLoader_MalformedYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte("server: [not a map"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := NewLoader().WithDotEnv(false).WithPath(configFile).Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
