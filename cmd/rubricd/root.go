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
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/rubric/internal/version"
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "rubricd",
	Short:   "Rubric - LLM-as-judge content evaluation service",
	Long:    `Rubric Server (rubricd) evaluates text content against declarative quality and compliance schemes, using an LLM judge for leaf scores and pure aggregation for derived schemes.`,
	Version: version.Get(),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./rubricd.yaml)")

	// Server flags
	rootCmd.PersistentFlags().String("host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("port", 8001, "HTTP server port")

	// Scheme flags
	rootCmd.PersistentFlags().String("schemes-dir", "schemes", "directory containing scheme YAML files")

	// LLM flags
	rootCmd.PersistentFlags().String("llm-provider", "openai", "LLM provider (openai, anthropic, bedrock)")
	rootCmd.PersistentFlags().String("openai-key", "", "OpenAI API key (or use keyring/env)")
	rootCmd.PersistentFlags().String("openai-model", "gpt-4o-mini", "OpenAI model")
	rootCmd.PersistentFlags().Int("max-concurrent", 20, "Maximum concurrent LLM calls")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.host", rootCmd.PersistentFlags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))

	_ = viper.BindPFlag("schemes.dir", rootCmd.PersistentFlags().Lookup("schemes-dir"))

	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.openai_api_key", rootCmd.PersistentFlags().Lookup("openai-key"))
	_ = viper.BindPFlag("llm.openai_model", rootCmd.PersistentFlags().Lookup("openai-model"))
	_ = viper.BindPFlag("llm.max_concurrent_calls", rootCmd.PersistentFlags().Lookup("max-concurrent"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	var err error
	config, err = LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
}
