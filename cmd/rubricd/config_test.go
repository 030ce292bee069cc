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
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes content to a temp config file and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rubricd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("API_HOST", "")
	t.Setenv("API_PORT", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("SCHEMES_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	config, err := LoadConfig(writeTestConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 8001, config.Server.Port)
	assert.Equal(t, 60, config.Server.TimeoutSeconds)
	assert.True(t, config.Server.CORS.Enabled)
	assert.Equal(t, []string{"*"}, config.Server.CORS.AllowedOrigins)

	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.OpenAIModel)
	assert.Equal(t, 20, config.LLM.MaxConcurrentCalls)
	assert.Equal(t, 60, config.LLM.TimeoutSeconds)

	assert.Equal(t, "schemes", config.Schemes.Dir)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Setenv("API_HOST", "")
	t.Setenv("API_PORT", "")
	t.Setenv("ANTHROPIC_MODEL", "")
	t.Setenv("MAX_CONCURRENT_LLM_CALLS", "")
	t.Setenv("SCHEMES_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	path := writeTestConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
llm:
  provider: anthropic
  anthropic_model: claude-haiku-test
  max_concurrent_calls: 5
schemes:
  dir: /opt/rubric/schemes
logging:
  level: debug
  format: json
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, "anthropic", config.LLM.Provider)
	assert.Equal(t, "claude-haiku-test", config.LLM.AnthropicModel)
	assert.Equal(t, 5, config.LLM.MaxConcurrentCalls)
	assert.Equal(t, "/opt/rubric/schemes", config.Schemes.Dir)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("API_PORT", "9999")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("MAX_CONCURRENT_LLM_CALLS", "3")
	t.Setenv("SCHEMES_DIR", "/data/schemes")
	t.Setenv("LOG_LEVEL", "warn")

	config, err := LoadConfig(writeTestConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "gpt-4o", config.LLM.OpenAIModel)
	assert.Equal(t, 3, config.LLM.MaxConcurrentCalls)
	assert.Equal(t, "/data/schemes", config.Schemes.Dir)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoadConfigPrefixedEnv(t *testing.T) {
	viper.Reset()
	t.Setenv("RUBRIC_SERVER_HOST", "10.0.0.1")
	t.Setenv("RUBRIC_LOGGING_FORMAT", "json")

	config, err := LoadConfig(writeTestConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", config.Server.Host)
	assert.Equal(t, "json", config.Logging.Format)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Host: "0.0.0.0", Port: 8001, TimeoutSeconds: 60},
			LLM:     LLMConfig{Provider: "openai", OpenAIAPIKey: "sk-test", MaxConcurrentCalls: 20},
			Schemes: SchemesConfig{Dir: "schemes"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid openai config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing openai key",
			mutate:  func(c *Config) { c.LLM.OpenAIAPIKey = "" },
			wantErr: "openai API key is required",
		},
		{
			name: "missing anthropic key",
			mutate: func(c *Config) {
				c.LLM.Provider = "anthropic"
			},
			wantErr: "anthropic API key is required",
		},
		{
			name: "anthropic with key",
			mutate: func(c *Config) {
				c.LLM.Provider = "anthropic"
				c.LLM.AnthropicAPIKey = "sk-ant-test"
			},
		},
		{
			name: "bedrock needs only a region",
			mutate: func(c *Config) {
				c.LLM.Provider = "bedrock"
				c.LLM.OpenAIAPIKey = ""
				c.LLM.BedrockRegion = "us-west-2"
			},
		},
		{
			name: "bedrock without region",
			mutate: func(c *Config) {
				c.LLM.Provider = "bedrock"
				c.LLM.BedrockRegion = ""
			},
			wantErr: "bedrock region is required",
		},
		{
			name:    "port too low",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid port",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid port",
		},
		{
			name:    "empty schemes dir",
			mutate:  func(c *Config) { c.Schemes.Dir = "" },
			wantErr: "schemes.dir is required",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.LLM.MaxConcurrentCalls = 0 },
			wantErr: "max_concurrent_calls",
		},
		{
			name:    "empty provider",
			mutate:  func(c *Config) { c.LLM.Provider = "" },
			wantErr: "llm.provider is required",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "ollama" },
			wantErr: "unsupported llm.provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestModel(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{
		OpenAIModel:    "gpt-4o-mini",
		AnthropicModel: "claude-sonnet-4-5-20250929",
		BedrockModelID: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	}}

	cfg.LLM.Provider = "openai"
	assert.Equal(t, "gpt-4o-mini", cfg.Model())

	cfg.LLM.Provider = "anthropic"
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Model())

	cfg.LLM.Provider = "bedrock"
	assert.Equal(t, "us.anthropic.claude-sonnet-4-5-20250929-v1:0", cfg.Model())
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "short secret",
			input:    "short",
			expected: "***",
		},
		{
			name:     "normal secret",
			input:    "sk-ant-1234567890abcdef",
			expected: "sk-a...cdef",
		},
		{
			name:     "long secret",
			input:    "very-long-secret-key-with-many-characters",
			expected: "very...ters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskSecret(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestListAvailableSecretKeys(t *testing.T) {
	keys := ListAvailableSecretKeys()
	assert.Equal(t, []string{
		"openai_api_key",
		"anthropic_api_key",
		"bedrock_access_key_id",
		"bedrock_secret_access_key",
		"bedrock_session_token",
	}, keys)
}
