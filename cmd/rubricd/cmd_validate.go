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
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/teradata-labs/rubric/pkg/schema"
)

var validateSchemesDir string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate scheme YAML files",
	Long: heredoc.Doc(`
		Validate every scheme file in the schemes directory.

		Each file must parse, pass the structural meta schema, and declare
		a unique id. Once every file is valid, cross-scheme checks run:
		dependencies must resolve, the dependency graph must be acyclic,
		and derived rules may only reference dimensions their dependencies
		produce.

		Exits non-zero if any check fails.
	`),
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateSchemesDir, "schemes-dir", "", "directory to validate (default: configured schemes.dir)")
}

func runValidate(cmd *cobra.Command, args []string) {
	dir := validateSchemesDir
	if dir == "" {
		dir = config.Schemes.Dir
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "❌ Directory not found: %s\n", dir)
		os.Exit(1)
	}
	if err == nil && !info.IsDir() {
		fmt.Fprintf(os.Stderr, "❌ Not a directory: %s\n", dir)
		os.Exit(1)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error reading directory: %v\n", err)
		os.Exit(1)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			files = append(files, name)
		}
	}

	if len(files) == 0 {
		fmt.Printf("No scheme files found in %s\n", dir)
		return
	}

	fmt.Printf("Validating %d scheme files in %s...\n\n", len(files), dir)

	reg := schema.NewRegistry()
	validCount := 0
	invalidCount := 0
	var errors []string

	for _, name := range files {
		s, err := schema.LoadFile(filepath.Join(dir, name))
		if err == nil {
			// Registration catches duplicate ids across files.
			err = reg.Register(s)
		}
		if err != nil {
			fmt.Printf("❌ %s\n", name)
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
			invalidCount++
			continue
		}
		fmt.Printf("✅ %s\n", name)
		validCount++
	}

	// Cross-scheme checks need every file parsed first.
	graphOK := true
	if invalidCount == 0 {
		if _, err := schema.Load(dir); err != nil {
			graphOK = false
			fmt.Printf("\n❌ Cross-scheme validation failed:\n   %v\n", err)
		}
	}

	// Summary
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Valid:   %d\n", validCount)
	fmt.Printf("  Invalid: %d\n", invalidCount)
	fmt.Printf("  Total:   %d\n", len(files))

	if invalidCount > 0 {
		fmt.Println("\nErrors:")
		for _, errMsg := range errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}
	if invalidCount > 0 || !graphOK {
		os.Exit(1)
	}
}
