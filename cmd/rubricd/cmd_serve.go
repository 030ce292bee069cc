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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/rubric/internal/log"
	"github.com/teradata-labs/rubric/internal/version"
	"github.com/teradata-labs/rubric/pkg/evaluation"
	"github.com/teradata-labs/rubric/pkg/judge"
	"github.com/teradata-labs/rubric/pkg/judge/factory"
	"github.com/teradata-labs/rubric/pkg/schema"
	"github.com/teradata-labs/rubric/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the rubric HTTP server",
	Long: heredoc.Doc(`
		Start the evaluation service with the HTTP API.

		The server will:
		- Load evaluation schemes from the configured directory
		- Initialize the configured LLM judge provider
		- Listen for HTTP requests on the specified host and port

		Press Ctrl+C to gracefully shutdown.
	`),
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	// Validate configuration
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(config.Logging.Level, config.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger := log.Logger()
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rubric server", zap.String("version", version.Get()))

	// Show actual config file used (not just the --config flag)
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		logger.Info("Config file loaded", zap.String("path", configFileUsed))
	} else {
		logger.Info("No config file found", zap.String("searched", "./rubricd.yaml, $HOME/.rubric/rubricd.yaml, /etc/rubric/rubricd.yaml"))
		logger.Info("Using defaults + environment variables")
	}

	registry, err := schema.Load(config.Schemes.Dir)
	if err != nil {
		logger.Fatal("Failed to load schemes",
			zap.String("dir", config.Schemes.Dir),
			zap.Error(err))
	}
	logger.Info("Schemes loaded",
		zap.Int("count", registry.Len()),
		zap.String("dir", config.Schemes.Dir))

	base, err := factory.New(factory.Config{
		Provider:               config.LLM.Provider,
		Model:                  config.Model(),
		OpenAIAPIKey:           config.LLM.OpenAIAPIKey,
		OpenAIBaseURL:          config.LLM.OpenAIBaseURL,
		AnthropicAPIKey:        config.LLM.AnthropicAPIKey,
		BedrockRegion:          config.LLM.BedrockRegion,
		BedrockAccessKeyID:     config.LLM.BedrockAccessKeyID,
		BedrockSecretAccessKey: config.LLM.BedrockSecretAccessKey,
		BedrockSessionToken:    config.LLM.BedrockSessionToken,
		BedrockProfile:         config.LLM.BedrockProfile,
		Timeout:                time.Duration(config.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create judge provider", zap.Error(err))
	}
	logger.Info("Judge provider initialized",
		zap.String("provider", config.LLM.Provider),
		zap.String("model", config.Model()),
		zap.Int("max_concurrent_calls", config.LLM.MaxConcurrentCalls),
		zap.Int("timeout_seconds", config.LLM.TimeoutSeconds))

	// Limiter sits inside the retry wrapper so a judge waiting out a
	// backoff does not hold a concurrency slot.
	j := judge.NewRetryable(
		judge.NewLimited(base, config.LLM.MaxConcurrentCalls, logger),
		judge.DefaultRetryConfig(),
		logger,
	)

	engine := evaluation.NewEngine(evaluation.Config{
		Registry: registry,
		Judge:    j,
		Logger:   logger,
	})

	srv := server.New(server.Config{
		Registry: registry,
		Engine:   engine,
		Logger:   logger,
		Addr:     fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port),
		CORS: &server.CORSConfig{
			Enabled:          config.Server.CORS.Enabled,
			AllowedOrigins:   config.Server.CORS.AllowedOrigins,
			AllowedMethods:   config.Server.CORS.AllowedMethods,
			AllowedHeaders:   config.Server.CORS.AllowedHeaders,
			ExposedHeaders:   config.Server.CORS.ExposedHeaders,
			AllowCredentials: config.Server.CORS.AllowCredentials,
			MaxAge:           config.Server.CORS.MaxAge,
		},
		RequestTimeout: time.Duration(config.Server.TimeoutSeconds) * time.Second,
	})

	// Handle graceful shutdown
	go func() {
		sigch := make(chan os.Signal, 1)
		signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
		<-sigch
		logger.Info("Shutting down gracefully... (press Ctrl+C again to force)")

		// Start a goroutine to listen for second Ctrl+C (force shutdown)
		go func() {
			<-sigch
			logger.Warn("Force shutdown requested")
			os.Exit(1)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}

		logger.Info("Shutdown complete")
	}()

	logger.Info("Ready to evaluate!")

	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to serve", zap.Error(err))
	}
}
