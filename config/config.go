package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Context reduction modes.
const (
	ModeTruncation    = "truncation"
	ModeSummarization = "summarization"
	ModeSlidingWindow = "sliding_window"
)

// Storage backends.
const (
	StorageMemory  = "memory"
	StorageRedis   = "redis"
	StorageMongoDB = "mongodb"
	StorageSQLite  = "sqlite"
)

// Provider types.
const (
	ProviderTypeOpenAI = "openai"
	ProviderTypeAzure  = "azure"
	ProviderTypeCustom = "custom"
)

// Config is the complete relay configuration, loaded from YAML with
// environment variable substitution.
type Config struct {
	Server        ServerConfig   `yaml:"server" json:"server"`
	Storage       StorageConfig  `yaml:"storage" json:"storage"`
	Context       ContextConfig  `yaml:"context" json:"context"`
	Providers     []Provider     `yaml:"providers" json:"providers"`
	ModelMappings []ModelMapping `yaml:"model_mappings" json:"model_mappings"`
}

// ServerConfig holds HTTP server and session lifecycle settings.
type ServerConfig struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
	SessionTTL int    `yaml:"session_ttl" json:"session_ttl"` // seconds
	Debug      bool   `yaml:"debug" json:"debug"`
}

// StorageConfig selects and parameterizes the session store backend.
type StorageConfig struct {
	Type       string `yaml:"type" json:"type"`
	RedisURL   string `yaml:"redis_url" json:"redis_url,omitempty"`
	RedisDB    int    `yaml:"redis_db" json:"redis_db,omitempty"`
	MongoURI   string `yaml:"mongo_uri" json:"mongo_uri,omitempty"`
	MongoDB    string `yaml:"mongo_database" json:"mongo_database,omitempty"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path,omitempty"`
}

// ContextConfig bounds a conversation and picks the reduction strategy
// applied when it overflows. It appears once at the top level as the
// default and optionally per model mapping as an override.
type ContextConfig struct {
	MaxTurns            int    `yaml:"max_turns" json:"max_turns"`
	MaxTokens           int    `yaml:"max_tokens" json:"max_tokens"`
	ReductionMode       string `yaml:"reduction_mode" json:"reduction_mode"`
	SummarizationModel  string `yaml:"summarization_model" json:"summarization_model,omitempty"`
	SummarizationPrompt string `yaml:"summarization_prompt" json:"summarization_prompt,omitempty"`
	PreserveSystem      bool   `yaml:"preserve_system_message" json:"preserve_system_message"`
	MemoryZoneEnabled   bool   `yaml:"memory_zone_enabled" json:"memory_zone_enabled"`
}

// Provider is one upstream OpenAI-compatible endpoint. The API key is
// excluded from JSON so diagnostic surfaces can marshal the config
// without leaking credentials.
type Provider struct {
	Name         string   `yaml:"name" json:"name"`
	BaseURL      string   `yaml:"base_url" json:"base_url"`
	APIKey       string   `yaml:"api_key" json:"-"`
	ProviderType string   `yaml:"provider_type" json:"provider_type"`
	Models       []string `yaml:"models" json:"models"`
	Timeout      int      `yaml:"timeout" json:"timeout"` // seconds
	MaxRetries   int      `yaml:"max_retries" json:"max_retries"`
}

// ModelMapping routes a display name to a provider and the model name
// that provider expects, with an optional context override.
type ModelMapping struct {
	DisplayName     string         `yaml:"display_name" json:"display_name"`
	ProviderName    string         `yaml:"provider_name" json:"provider_name"`
	ActualModelName string         `yaml:"actual_model_name" json:"actual_model_name"`
	Context         *ContextConfig `yaml:"context_config" json:"context_config,omitempty"`
}

// DefaultContextConfig returns the context bounds applied when the
// configuration leaves them unset.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		MaxTurns:          10,
		MaxTokens:         4000,
		ReductionMode:     ModeTruncation,
		PreserveSystem:    true,
		MemoryZoneEnabled: true,
	}
}

// UnmarshalYAML decodes over the defaults so absent keys keep their
// default values, including booleans that default to true.
func (c *ContextConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain ContextConfig
	out := plain(DefaultContextConfig())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*c = ContextConfig(out)
	return nil
}

// UnmarshalYAML fills provider defaults for absent keys.
func (p *Provider) UnmarshalYAML(value *yaml.Node) error {
	type plain Provider
	out := plain{
		ProviderType: ProviderTypeOpenAI,
		Timeout:      30,
		MaxRetries:   3,
	}
	if err := value.Decode(&out); err != nil {
		return err
	}
	out.BaseURL = strings.TrimRight(out.BaseURL, "/")
	*p = Provider(out)
	return nil
}

// Default returns a configuration with every section at its defaults.
// Providers and mappings start empty and must come from the YAML file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8000,
			LogLevel:   "info",
			SessionTTL: 3600,
		},
		Storage: StorageConfig{
			Type:       StorageMemory,
			MongoURI:   "mongodb://localhost:27017",
			MongoDB:    "modelrelay",
			SQLitePath: ":memory:",
		},
		Context: DefaultContextConfig(),
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv substitutes ${VAR} references in the raw configuration
// text. Referencing an unset variable is an error so a missing API key
// fails at startup instead of at the first upstream call.
func expandEnv(raw []byte) ([]byte, error) {
	var missing []string
	expanded := envVarPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		name := string(envVarPattern.FindSubmatch(match)[1])
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
			return match
		}
		return []byte(value)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("environment variables not set: %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// Load reads, expands, parses and validates the configuration file.
// Environment overrides (RELAY_PORT, RELAY_LOG_LEVEL, REDIS_URL) are
// applied after parsing.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by RELAY_CONFIG_PATH, falling back
// to config/config.yaml.
func LoadFromEnv() (*Config, error) {
	return Load(getEnvString("RELAY_CONFIG_PATH", "config/config.yaml"))
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnvInt("RELAY_PORT", c.Server.Port)
	c.Server.LogLevel = getEnvString("RELAY_LOG_LEVEL", c.Server.LogLevel)
	c.Server.Debug = getEnvBool("RELAY_DEBUG", c.Server.Debug)
	c.Storage.RedisURL = getEnvString("REDIS_URL", c.Storage.RedisURL)
}

// Validate checks the configuration for consistency. All problems are
// reported together so a broken config can be fixed in one pass.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server port %d out of range", c.Server.Port))
	}
	if c.Server.SessionTTL < 60 {
		errs = append(errs, fmt.Sprintf("session_ttl %d too short, minimum 60 seconds", c.Server.SessionTTL))
	}
	if !validLogLevel(c.Server.LogLevel) {
		errs = append(errs, fmt.Sprintf("unknown log_level %q", c.Server.LogLevel))
	}

	switch c.Storage.Type {
	case StorageMemory, StorageMongoDB, StorageSQLite:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, "storage type is redis but redis_url is not configured")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage type %q", c.Storage.Type))
	}

	errs = append(errs, c.validateContext("context", c.Context)...)

	if len(c.Providers) == 0 {
		errs = append(errs, "at least one provider must be configured")
	}
	providerNames := make(map[string]bool, len(c.Providers))
	providerModels := make(map[string]map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if providerNames[p.Name] {
			errs = append(errs, fmt.Sprintf("duplicate provider name %q", p.Name))
		}
		providerNames[p.Name] = true

		models := make(map[string]bool, len(p.Models))
		for _, m := range p.Models {
			models[m] = true
		}
		providerModels[p.Name] = models

		if !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
			errs = append(errs, fmt.Sprintf("provider %q base_url must start with http:// or https://", p.Name))
		}
		if p.APIKey == "" {
			errs = append(errs, fmt.Sprintf("provider %q has no api_key", p.Name))
		}
		if p.Timeout < 1 {
			errs = append(errs, fmt.Sprintf("provider %q timeout must be at least 1 second", p.Name))
		}
		if p.MaxRetries < 0 {
			errs = append(errs, fmt.Sprintf("provider %q max_retries must not be negative", p.Name))
		}
		switch p.ProviderType {
		case ProviderTypeOpenAI, ProviderTypeAzure, ProviderTypeCustom:
		default:
			errs = append(errs, fmt.Sprintf("provider %q has unknown provider_type %q", p.Name, p.ProviderType))
		}
	}

	if len(c.ModelMappings) == 0 {
		errs = append(errs, "at least one model mapping must be configured")
	}
	displayNames := make(map[string]bool, len(c.ModelMappings))
	for _, m := range c.ModelMappings {
		if displayNames[m.DisplayName] {
			errs = append(errs, fmt.Sprintf("duplicate model display name %q", m.DisplayName))
		}
		displayNames[m.DisplayName] = true

		models, ok := providerModels[m.ProviderName]
		if !ok {
			errs = append(errs, fmt.Sprintf("model mapping %q references non-existent provider %q", m.DisplayName, m.ProviderName))
		} else if len(models) > 0 && !models[m.ActualModelName] {
			errs = append(errs, fmt.Sprintf("model mapping %q references model %q which is not listed for provider %q", m.DisplayName, m.ActualModelName, m.ProviderName))
		}

		if m.Context != nil {
			errs = append(errs, c.validateContext(fmt.Sprintf("model mapping %q", m.DisplayName), *m.Context)...)
		}
	}

	// Summarization models follow the same resolution rules as request
	// models: a mapping display name, or provider/model for a configured
	// provider. A model that cannot resolve would silently degrade every
	// summarization to the truncation fallback, so reject it here.
	resolves := func(name string) bool {
		if displayNames[name] {
			return true
		}
		providerName, modelName, ok := strings.Cut(name, "/")
		if !ok || providerName == "" || modelName == "" {
			return false
		}
		models, ok := providerModels[providerName]
		if !ok {
			return false
		}
		return len(models) == 0 || models[modelName]
	}
	if c.Context.ReductionMode == ModeSummarization && c.Context.SummarizationModel != "" &&
		!resolves(c.Context.SummarizationModel) {
		errs = append(errs, fmt.Sprintf("context: summarization_model %q does not resolve to a configured model", c.Context.SummarizationModel))
	}
	for _, m := range c.ModelMappings {
		if m.Context == nil || m.Context.ReductionMode != ModeSummarization {
			continue
		}
		if m.Context.SummarizationModel != "" && !resolves(m.Context.SummarizationModel) {
			errs = append(errs, fmt.Sprintf("model mapping %q: summarization_model %q does not resolve to a configured model", m.DisplayName, m.Context.SummarizationModel))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) validateContext(where string, ctx ContextConfig) []string {
	var errs []string
	if ctx.MaxTurns < 1 {
		errs = append(errs, fmt.Sprintf("%s: max_turns must be at least 1", where))
	}
	if ctx.MaxTokens < 100 {
		errs = append(errs, fmt.Sprintf("%s: max_tokens must be at least 100", where))
	}
	switch ctx.ReductionMode {
	case ModeTruncation, ModeSlidingWindow:
	case ModeSummarization:
		if ctx.SummarizationModel == "" {
			errs = append(errs, fmt.Sprintf("%s: summarization mode requires summarization_model", where))
		}
	default:
		errs = append(errs, fmt.Sprintf("%s: unknown reduction_mode %q", where, ctx.ReductionMode))
	}
	return errs
}

// Provider returns the provider with the given name, or nil.
func (c *Config) Provider(name string) *Provider {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// Mapping returns the model mapping for a display name, or nil.
func (c *Config) Mapping(displayName string) *ModelMapping {
	for i := range c.ModelMappings {
		if c.ModelMappings[i].DisplayName == displayName {
			return &c.ModelMappings[i]
		}
	}
	return nil
}

// ContextFor returns the effective context configuration for a display
// name: the mapping override when present, otherwise the global default.
func (c *Config) ContextFor(displayName string) ContextConfig {
	if m := c.Mapping(displayName); m != nil && m.Context != nil {
		return *m.Context
	}
	return c.Context
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// TTL returns the session time-to-live.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.Server.SessionTTL) * time.Second
}

// TimeoutDuration returns the provider timeout.
func (p *Provider) TimeoutDuration() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// Allows reports whether the provider's allow list admits the model.
// An empty list admits everything.
func (p *Provider) Allows(model string) bool {
	if len(p.Models) == 0 {
		return true
	}
	for _, m := range p.Models {
		if m == model {
			return true
		}
	}
	return false
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Helper functions for environment variables
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
