// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	// ServiceName for keyring storage
	ServiceName = "rubric"
	// DefaultConfigFileName is the name of the config file
	DefaultConfigFileName = "rubricd"
)

// Config holds all configuration for the rubric server.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Schemes configuration
	Schemes SchemesConfig `mapstructure:"schemes"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// TimeoutSeconds bounds one evaluate request end to end.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// CORS configuration for HTTP endpoints. Defaults are permissive;
	// set allowed_origins to specific domains in production.
	CORS CORSServerConfig `mapstructure:"cors"`
}

// CORSServerConfig holds CORS configuration for HTTP endpoints.
type CORSServerConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider string `mapstructure:"provider"` // openai, anthropic, bedrock

	// OpenAI-specific
	OpenAIAPIKey  string `mapstructure:"openai_api_key"` // From CLI/env/keyring only
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	// Anthropic-specific
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"` // From CLI/env/keyring only
	AnthropicModel  string `mapstructure:"anthropic_model"`

	// Bedrock-specific
	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`     // From CLI/env/keyring only
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"` // From CLI/env/keyring only
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`     // From CLI/env/keyring only
	BedrockProfile         string `mapstructure:"bedrock_profile"`
	BedrockModelID         string `mapstructure:"bedrock_model_id"`

	// MaxConcurrentCalls caps in-flight judge calls process-wide.
	MaxConcurrentCalls int `mapstructure:"max_concurrent_calls"`

	// TimeoutSeconds bounds one judge call.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// SchemesConfig holds scheme loading configuration.
type SchemesConfig struct {
	// Dir is the directory scanned for scheme YAML files at startup.
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from multiple sources with proper priority:
// 1. Command line flags (highest priority)
// 2. Config file
// 3. Environment variables
// 4. Defaults (lowest priority)
func LoadConfig(cfgFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Setup config file
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in standard locations
		viper.AddConfigPath(".")            // Current directory
		viper.AddConfigPath("$HOME/.rubric") // User directory
		viper.AddConfigPath("/etc/rubric/") // System-wide
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	// Bind environment variables. RUBRIC_-prefixed variables map onto
	// any config key; the well-known unprefixed names bind explicitly.
	viper.SetEnvPrefix("RUBRIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindWellKnownEnv()

	// Unmarshal config
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets from keyring if not provided via CLI/env
	// Non-fatal: keyring might not be available - user can provide secrets via CLI/env
	_ = loadSecretsFromKeyring(&config)

	return &config, nil
}

// bindWellKnownEnv binds the conventional environment variable names the
// service has always honored, independent of the RUBRIC_ prefix.
func bindWellKnownEnv() {
	bindings := map[string]string{
		"llm.openai_api_key":       "OPENAI_API_KEY",
		"llm.openai_model":         "OPENAI_MODEL",
		"llm.openai_base_url":      "OPENAI_BASE_URL",
		"llm.anthropic_api_key":    "ANTHROPIC_API_KEY",
		"llm.anthropic_model":      "ANTHROPIC_MODEL",
		"llm.max_concurrent_calls": "MAX_CONCURRENT_LLM_CALLS",
		"llm.timeout_seconds":      "OPENAI_TIMEOUT_SECONDS",
		"schemes.dir":              "SCHEMES_DIR",
		"server.host":              "API_HOST",
		"server.port":              "API_PORT",
		"server.timeout_seconds":   "HTTP_TIMEOUT_SECONDS",
		"logging.level":            "LOG_LEVEL",
	}
	for key, env := range bindings {
		_ = viper.BindEnv(key, env)
	}
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8001)
	viper.SetDefault("server.timeout_seconds", 60)

	// CORS defaults (permissive for development, configure for production)
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("server.cors.allowed_headers", []string{"*"})
	viper.SetDefault("server.cors.exposed_headers", []string{"Content-Length", "Content-Type", "X-Request-Id"})
	viper.SetDefault("server.cors.allow_credentials", false)
	viper.SetDefault("server.cors.max_age", 86400) // 24 hours

	// LLM defaults
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.openai_model", "gpt-4o-mini")
	viper.SetDefault("llm.anthropic_model", "claude-sonnet-4-5-20250929")
	viper.SetDefault("llm.bedrock_region", "us-west-2")
	viper.SetDefault("llm.bedrock_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0")
	viper.SetDefault("llm.max_concurrent_calls", 20)
	viper.SetDefault("llm.timeout_seconds", 60)

	// Schemes defaults
	viper.SetDefault("schemes.dir", "schemes")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
}

// Validate checks the configuration for the selected provider.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Schemes.Dir == "" {
		return fmt.Errorf("schemes.dir is required")
	}
	if c.LLM.MaxConcurrentCalls < 1 {
		return fmt.Errorf("llm.max_concurrent_calls must be at least 1, got %d", c.LLM.MaxConcurrentCalls)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("openai API key is required (set via --openai-key, OPENAI_API_KEY, or save to keyring with 'rubricd config set-key openai_api_key')")
		}

	case "anthropic":
		if c.LLM.AnthropicAPIKey == "" {
			return fmt.Errorf("anthropic API key is required (set via ANTHROPIC_API_KEY or save to keyring with 'rubricd config set-key anthropic_api_key')")
		}

	case "bedrock":
		if c.LLM.BedrockRegion == "" {
			return fmt.Errorf("bedrock region is required (set llm.bedrock_region in config or AWS_REGION env var)")
		}
		// Explicit credentials are optional: profile, IAM role, or the
		// default AWS credentials chain all work at runtime.

	case "":
		return fmt.Errorf("llm.provider is required")

	default:
		return fmt.Errorf("unsupported llm.provider: %s (expected: openai, anthropic, or bedrock)", c.LLM.Provider)
	}

	return nil
}

// Model returns the model identifier for the configured provider.
func (c *Config) Model() string {
	switch c.LLM.Provider {
	case "anthropic":
		return c.LLM.AnthropicModel
	case "bedrock":
		return c.LLM.BedrockModelID
	default:
		return c.LLM.OpenAIModel
	}
}

// SecretMapping defines how to load a secret from keyring into the config.
// The key is the keyring key name, and the setter is a function that applies the value to the config.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool // Returns true if the value is already set (skip keyring lookup)
}

// GetSecretMappings returns all secret mappings for the application.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "openai_api_key",
			Setter:     func(c *Config, val string) { c.LLM.OpenAIAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.OpenAIAPIKey != "" },
		},
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, val string) { c.LLM.AnthropicAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.AnthropicAPIKey != "" },
		},
		{
			KeyringKey: "bedrock_access_key_id",
			Setter:     func(c *Config, val string) { c.LLM.BedrockAccessKeyID = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockAccessKeyID != "" },
		},
		{
			KeyringKey: "bedrock_secret_access_key",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSecretAccessKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSecretAccessKey != "" },
		},
		{
			KeyringKey: "bedrock_session_token",
			Setter:     func(c *Config, val string) { c.LLM.BedrockSessionToken = val },
			IsSet:      func(c *Config) bool { return c.LLM.BedrockSessionToken != "" },
		},
	}
}

// loadSecretsFromKeyring loads API keys from system keyring using the secret mappings.
func loadSecretsFromKeyring(config *Config) error {
	for _, mapping := range GetSecretMappings() {
		// Skip if value is already set (from CLI/env/config file)
		if mapping.IsSet(config) {
			continue
		}

		// Try to load from keyring
		value, err := GetSecretFromKeyring(mapping.KeyringKey)
		if err == nil && value != "" {
			mapping.Setter(config, value)
		}
		// Non-fatal: if keyring doesn't have the key, just continue
	}

	return nil
}

// GetSecretFromKeyring retrieves a secret from the system keyring.
func GetSecretFromKeyring(key string) (string, error) {
	return keyring.Get(ServiceName, key)
}

// SaveSecretToKeyring saves a secret to the system keyring.
func SaveSecretToKeyring(key, value string) error {
	return keyring.Set(ServiceName, key, value)
}

// DeleteSecretFromKeyring removes a secret from the system keyring.
func DeleteSecretFromKeyring(key string) error {
	return keyring.Delete(ServiceName, key)
}

// ListAvailableSecretKeys returns all known secret keys that can be stored in the keyring.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, len(mappings))
	for i, mapping := range mappings {
		keys[i] = mapping.KeyringKey
	}
	return keys
}
