package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	yaml := []byte(`
server:
  port: 18700
  host: localhost
provider:
  type: openai
  openai:
    api_key: test-key
    model: gpt-4o-mini
  timeout: 30s
channels:
  telegram:
    enabled: true
    token: test-token
rate_limit:
  limit: 5
  window: 60s
languages:
  primary: en
  secondary: am
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yaml)
	f.Close()
	defer os.Remove(f.Name())

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 18700 {
		t.Errorf("Expected port 18700, got %d", cfg.Server.Port)
	}
	if cfg.Provider.Timeout.Std() != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Provider.Timeout.Std())
	}
	if cfg.RateLimit.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", cfg.RateLimit.Limit)
	}
	if len(cfg.Subjects) != 3 {
		t.Errorf("Expected default subjects, got %v", cfg.Subjects)
	}
}

func TestEnvOverride(t *testing.T) {
	yaml := []byte(`
provider:
  type: openai
`)
	f, _ := os.CreateTemp("", "config-*.yaml")
	f.Write(yaml)
	f.Close()
	defer os.Remove(f.Name())

	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.OpenAI.APIKey != "env-key" {
		t.Errorf("Expected env override, got %q", cfg.Provider.OpenAI.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	cfg.Provider.OpenAI.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestValidateInvalidPort(t *testing.T) {
	cfg := defaults()
	cfg.Provider.OpenAI.APIKey = "key"
	cfg.Server.Port = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for invalid port")
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	cfg := defaults()
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for missing API key")
	}
}

func TestValidateChannelWithoutToken(t *testing.T) {
	cfg := defaults()
	cfg.Provider.OpenAI.APIKey = "key"
	cfg.Channels.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for telegram without token")
	}
}
