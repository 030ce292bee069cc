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
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage rubric configuration and secrets",
	Long:  `Manage configuration and API keys for the rubric server.`,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key [key-name]",
	Short: "Save API key to system keyring",
	Long: `Save an API key to the system keyring securely.

The key will be stored in your system's secure credential storage
(Keychain on macOS, Credential Manager on Windows, Secret Service on Linux).

Run 'rubricd config list-keys' to see available key names.`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigSetKey,
}

var configGetKeyCmd = &cobra.Command{
	Use:   "get-key [key-name]",
	Short: "Retrieve API key from system keyring",
	Long:  `Retrieve an API key from the system keyring (for verification).`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGetKey,
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key [key-name]",
	Short: "Delete API key from system keyring",
	Long:  `Remove an API key from the system keyring.`,
	Args:  cobra.ExactArgs(1),
	Run:   runConfigDeleteKey,
}

var configListKeysCmd = &cobra.Command{
	Use:   "list-keys",
	Short: "List available secret keys",
	Long:  `List all available secret keys that can be stored in the keyring.`,
	Run:   runConfigListKeys,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration (merged from all sources).`,
	Run:   runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configGetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
	configCmd.AddCommand(configListKeysCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigSetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	availableKeys := ListAvailableSecretKeys()
	validKeys := make(map[string]bool)
	for _, k := range availableKeys {
		validKeys[k] = true
	}

	if !validKeys[keyName] {
		fmt.Fprintf(os.Stderr, "Invalid key name: %s\n", keyName)
		fmt.Fprintf(os.Stderr, "Available keys:\n")
		for _, k := range availableKeys {
			fmt.Fprintf(os.Stderr, "  - %s\n", k)
		}
		os.Exit(1)
	}

	// Read secret from stdin (without echo)
	fmt.Printf("Enter %s (input hidden): ", keyName)
	secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after hidden input
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}

	secret := string(secretBytes)
	if secret == "" {
		fmt.Fprintf(os.Stderr, "Secret cannot be empty\n")
		os.Exit(1)
	}

	if err := SaveSecretToKeyring(keyName, secret); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving to keyring: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Saved %s to system keyring\n", keyName)
}

func runConfigGetKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	secret, err := GetSecretFromKeyring(keyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving key: %v\n", err)
		fmt.Fprintf(os.Stderr, "Key not found in keyring. Set it with: rubricd config set-key %s\n", keyName)
		os.Exit(1)
	}

	// Show partially masked
	masked := maskSecret(secret)
	fmt.Printf("%s: %s\n", keyName, masked)
}

func runConfigDeleteKey(cmd *cobra.Command, args []string) {
	keyName := args[0]

	if err := DeleteSecretFromKeyring(keyName); err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Deleted %s from system keyring\n", keyName)
}

func runConfigListKeys(cmd *cobra.Command, args []string) {
	keys := ListAvailableSecretKeys()
	fmt.Println("Available secret keys:")
	fmt.Println("======================")
	for _, key := range keys {
		fmt.Printf("  - %s\n", key)
	}
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  rubricd config set-key <key-name>")
	fmt.Println("  rubricd config get-key <key-name>")
	fmt.Println("  rubricd config delete-key <key-name>")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()

	fmt.Println("Server:")
	fmt.Printf("  Host: %s\n", config.Server.Host)
	fmt.Printf("  Port: %d\n", config.Server.Port)
	fmt.Printf("  Timeout: %ds\n", config.Server.TimeoutSeconds)
	fmt.Printf("  CORS enabled: %t\n", config.Server.CORS.Enabled)
	fmt.Println()

	fmt.Println("LLM:")
	fmt.Printf("  Provider: %s\n", config.LLM.Provider)
	fmt.Printf("  Model: %s\n", config.Model())
	switch config.LLM.Provider {
	case "openai":
		if config.LLM.OpenAIAPIKey != "" {
			fmt.Printf("  API Key: %s\n", maskSecret(config.LLM.OpenAIAPIKey))
		} else {
			fmt.Printf("  API Key: (not set)\n")
		}
		if config.LLM.OpenAIBaseURL != "" {
			fmt.Printf("  Base URL: %s\n", config.LLM.OpenAIBaseURL)
		}
	case "anthropic":
		if config.LLM.AnthropicAPIKey != "" {
			fmt.Printf("  API Key: %s\n", maskSecret(config.LLM.AnthropicAPIKey))
		} else {
			fmt.Printf("  API Key: (not set)\n")
		}
	case "bedrock":
		fmt.Printf("  Region: %s\n", config.LLM.BedrockRegion)
		if config.LLM.BedrockProfile != "" {
			fmt.Printf("  Profile: %s\n", config.LLM.BedrockProfile)
		}
	}
	fmt.Printf("  Max Concurrent Calls: %d\n", config.LLM.MaxConcurrentCalls)
	fmt.Printf("  Timeout: %ds\n", config.LLM.TimeoutSeconds)
	fmt.Println()

	fmt.Println("Schemes:")
	fmt.Printf("  Dir: %s\n", config.Schemes.Dir)
	fmt.Println()

	fmt.Println("Logging:")
	fmt.Printf("  Level: %s\n", config.Logging.Level)
	fmt.Printf("  Format: %s\n", config.Logging.Format)
}

// maskSecret masks a secret for display.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
