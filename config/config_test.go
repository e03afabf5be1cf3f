package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validYAML = `
server:
  port: 9001
  log_level: debug
  session_ttl: 120

storage:
  type: memory

context:
  max_turns: 5
  max_tokens: 2000
  reduction_mode: truncation

providers:
  - name: openai
    base_url: https://api.openai.com/v1/
    api_key: ${TEST_OPENAI_KEY}
    models:
      - gpt-4
      - gpt-3.5-turbo

model_mappings:
  - display_name: smart-model
    provider_name: openai
    actual_model_name: gpt-4
  - display_name: fast-model
    provider_name: openai
    actual_model_name: gpt-3.5-turbo
    context_config:
      max_turns: 3
      max_tokens: 1000
      reduction_mode: sliding_window
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("host default = %q, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Addr() != "0.0.0.0:9001" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}

	p := cfg.Provider("openai")
	if p == nil {
		t.Fatal("Provider(openai) returned nil")
	}
	if p.APIKey != "sk-test-123" {
		t.Errorf("api key not substituted from environment: %q", p.APIKey)
	}
	if p.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("base_url trailing slash not trimmed: %q", p.BaseURL)
	}
	if p.Timeout != 30 || p.MaxRetries != 3 {
		t.Errorf("provider defaults not applied: timeout=%d retries=%d", p.Timeout, p.MaxRetries)
	}
	if p.ProviderType != ProviderTypeOpenAI {
		t.Errorf("provider_type default = %q", p.ProviderType)
	}
}

func TestLoadMissingEnvVar(t *testing.T) {
	os.Unsetenv("TEST_OPENAI_KEY")

	_, err := Load(writeConfig(t, validYAML))
	if err == nil {
		t.Fatal("expected error for unset environment variable")
	}
	if !strings.Contains(err.Error(), "TEST_OPENAI_KEY") {
		t.Errorf("error should name the missing variable: %v", err)
	}
}

func TestContextDefaults(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	yaml := strings.Replace(validYAML, "context:\n  max_turns: 5\n  max_tokens: 2000\n  reduction_mode: truncation\n", "", 1)
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Context.MaxTurns != 10 || cfg.Context.MaxTokens != 4000 {
		t.Errorf("context defaults = %d/%d, want 10/4000", cfg.Context.MaxTurns, cfg.Context.MaxTokens)
	}
	if cfg.Context.ReductionMode != ModeTruncation {
		t.Errorf("default reduction mode = %q", cfg.Context.ReductionMode)
	}
	if !cfg.Context.PreserveSystem || !cfg.Context.MemoryZoneEnabled {
		t.Error("boolean context defaults should be true")
	}
}

func TestContextForMappingOverride(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	global := cfg.ContextFor("smart-model")
	if global.MaxTurns != 5 {
		t.Errorf("smart-model should use global context, got max_turns=%d", global.MaxTurns)
	}

	override := cfg.ContextFor("fast-model")
	if override.MaxTurns != 3 || override.ReductionMode != ModeSlidingWindow {
		t.Errorf("fast-model override not applied: %+v", override)
	}
	if !override.PreserveSystem {
		t.Error("unspecified override fields should keep defaults")
	}

	fallback := cfg.ContextFor("unknown-model")
	if fallback.MaxTurns != 5 {
		t.Errorf("unknown model should fall back to global context, got %+v", fallback)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")
	t.Setenv("RELAY_PORT", "9999")
	t.Setenv("RELAY_LOG_LEVEL", "error")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("RELAY_PORT override not applied: %d", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "error" {
		t.Errorf("RELAY_LOG_LEVEL override not applied: %q", cfg.Server.LogLevel)
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	bad := `
server:
  port: 9001
  session_ttl: 120

storage:
  type: redis

providers:
  - name: openai
    base_url: ftp://not-http
    api_key: ${TEST_OPENAI_KEY}
  - name: openai
    base_url: https://api.openai.com
    api_key: ${TEST_OPENAI_KEY}

model_mappings:
  - display_name: broken
    provider_name: nonexistent
    actual_model_name: gpt-4
  - display_name: needs-summarizer
    provider_name: openai
    actual_model_name: gpt-4
    context_config:
      reduction_mode: summarization
`
	_, err := Load(writeConfig(t, bad))
	if err == nil {
		t.Fatal("expected validation error")
	}

	for _, want := range []string{
		"redis_url is not configured",
		"base_url must start with",
		"duplicate provider name",
		"non-existent provider",
		"requires summarization_model",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q:\n%v", want, err)
		}
	}
}

func TestValidationSummarizationModelMustResolve(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	// An unresolvable model would degrade every summarization to the
	// truncation fallback at runtime, so Load must reject it.
	yaml := strings.Replace(validYAML, "reduction_mode: truncation\n",
		"reduction_mode: summarization\n  summarization_model: ghost/nonexistent\n", 1)
	_, err := Load(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for unresolvable summarization model")
	}
	if !strings.Contains(err.Error(), `summarization_model "ghost/nonexistent"`) {
		t.Errorf("error should name the offending model: %v", err)
	}

	// Both a mapping display name and a provider/model reference resolve.
	for _, good := range []string{"fast-model", "openai/gpt-3.5-turbo"} {
		yaml := strings.Replace(validYAML, "reduction_mode: truncation\n",
			"reduction_mode: summarization\n  summarization_model: "+good+"\n", 1)
		if _, err := Load(writeConfig(t, yaml)); err != nil {
			t.Errorf("summarization model %q should be accepted: %v", good, err)
		}
	}

	// Per-mapping overrides are checked the same way.
	yaml = strings.Replace(validYAML, "reduction_mode: sliding_window\n",
		"reduction_mode: summarization\n      summarization_model: openai/nope\n", 1)
	_, err = Load(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for mapping-level summarization model")
	}
	if !strings.Contains(err.Error(), `model mapping "fast-model"`) {
		t.Errorf("error should name the mapping: %v", err)
	}
}

func TestValidationModelNotInProviderList(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	yaml := strings.Replace(validYAML, "actual_model_name: gpt-4\n", "actual_model_name: gpt-5-nonexistent\n", 1)
	_, err := Load(writeConfig(t, yaml))
	if err == nil {
		t.Fatal("expected validation error for unlisted model")
	}
	if !strings.Contains(err.Error(), "not listed for provider") {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}
