// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package factory creates judge providers from configuration.
package factory

import (
	"fmt"
	"os"
	"time"

	"github.com/teradata-labs/rubric/pkg/judge"
	"github.com/teradata-labs/rubric/pkg/judge/anthropic"
	"github.com/teradata-labs/rubric/pkg/judge/bedrock"
	"github.com/teradata-labs/rubric/pkg/judge/openai"
)

// Config holds configuration for creating judge providers.
type Config struct {
	// Provider selects the backend: openai, anthropic, or bedrock.
	// Defaults to openai.
	Provider string
	Model    string

	// OpenAI configuration
	OpenAIAPIKey  string
	OpenAIBaseURL string

	// Anthropic configuration
	AnthropicAPIKey string

	// Bedrock configuration
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string

	// Common settings
	Timeout time.Duration
}

// New creates the judge provider named by cfg.Provider.
func New(cfg Config) (judge.Judge, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAI(cfg)
	case "anthropic":
		return newAnthropic(cfg)
	case "bedrock":
		return newBedrock(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func newOpenAI(cfg Config) (judge.Judge, error) {
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured (set llm.api_key or OPENAI_API_KEY)")
	}

	return openai.NewClient(openai.Config{
		APIKey:  apiKey,
		Model:   cfg.Model,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.Timeout,
	}), nil
}

func newAnthropic(cfg Config) (judge.Judge, error) {
	apiKey := cfg.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.api_key or ANTHROPIC_API_KEY)")
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:  apiKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}), nil
}

func newBedrock(cfg Config) (judge.Judge, error) {
	region := cfg.BedrockRegion
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return bedrock.NewClient(bedrock.Config{
		Region:          region,
		AccessKeyID:     cfg.BedrockAccessKeyID,
		SecretAccessKey: cfg.BedrockSecretAccessKey,
		SessionToken:    cfg.BedrockSessionToken,
		Profile:         cfg.BedrockProfile,
		ModelID:         cfg.Model,
	})
}
