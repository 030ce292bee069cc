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
	"strconv"
	"strings"
	"text/tabwriter"

	"charm.land/lipgloss/v2"
	"github.com/MakeNowJust/heredoc"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/teradata-labs/rubric/pkg/schema"
)

var (
	schemesKind         string
	schemesContextType  string
	schemesIncludeParts bool
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "Inspect evaluation schemes",
	Long:  `List and inspect the evaluation schemes in the configured schemes directory.`,
}

var schemesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evaluation schemes",
	Long: heredoc.Doc(`
		List the evaluation schemes found in the schemes directory.

		Partial schemes (ids ending in _partN) are hidden unless
		--include-parts is set. --context-type narrows the list to schemes
		whose gate rules apply under the given context, directly or through
		a dependency.

		Examples:
		  rubricd schemes list
		  rubricd schemes list --kind binary_gate
		  rubricd schemes list --context-type platform --include-parts
	`),
	Run: runSchemesList,
}

var schemesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a scheme's YAML definition",
	Long:  `Print the YAML source of one scheme, syntax-highlighted when stdout is a terminal.`,
	Args:  cobra.ExactArgs(1),
	Run:   runSchemesShow,
}

func init() {
	rootCmd.AddCommand(schemesCmd)
	schemesCmd.AddCommand(schemesListCmd)
	schemesCmd.AddCommand(schemesShowCmd)

	schemesListCmd.Flags().StringVar(&schemesKind, "kind", "", "filter by kind (ordinal_rubric, checklist_additive, binary_gate, derived)")
	schemesListCmd.Flags().StringVar(&schemesContextType, "context-type", "", "filter by gate scope (content, platform, both)")
	schemesListCmd.Flags().BoolVar(&schemesIncludeParts, "include-parts", false, "include partial schemes")
}

func runSchemesList(cmd *cobra.Command, args []string) {
	reg, err := schema.Load(config.Schemes.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading schemes from %s: %v\n", config.Schemes.Dir, err)
		os.Exit(1)
	}

	filter := schema.ListFilter{IncludeParts: schemesIncludeParts}
	if schemesKind != "" {
		kind, err := schema.ParseKind(schemesKind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Kind = kind
	}
	if schemesContextType != "" {
		scope, err := schema.ParseScope(schemesContextType)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.ContextType = scope
	}

	schemes := reg.List(filter)
	if len(schemes) == 0 {
		fmt.Println("No schemes match")
		return
	}

	title := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	fmt.Println(title.Render(fmt.Sprintf("Evaluation schemes (%s)", config.Schemes.Dir)))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tDIMENSION\tRANGE\tNAME")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for _, s := range schemes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Kind,
			s.Dimension,
			formatRange(s.OutputRange),
			truncate(s.Name, 40),
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d scheme(s)\n", len(schemes))
}

func runSchemesShow(cmd *cobra.Command, args []string) {
	id := args[0]

	path, err := findSchemeFile(config.Schemes.Dir, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		if err := quick.Highlight(os.Stdout, string(data), "yaml", "terminal256", "monokai"); err == nil {
			return
		}
	}
	fmt.Print(string(data))
}

// findSchemeFile locates the file under dir that defines scheme id.
// Files that fail to parse are skipped so one broken scheme does not
// block showing the others.
func findSchemeFile(dir, id string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading schemes directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		path := filepath.Join(dir, name)
		s, err := schema.LoadFile(path)
		if err != nil {
			continue
		}
		if s.ID == id {
			return path, nil
		}
	}
	return "", fmt.Errorf("scheme %q not found in %s", id, dir)
}

// formatRange renders an output range for the listing table.
func formatRange(r schema.OutputRange) string {
	if r.Type == schema.ValueBoolean {
		return "boolean"
	}
	if len(r.Values) > 0 {
		parts := make([]string, len(r.Values))
		for i, v := range r.Values {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return fmt.Sprintf("%s {%s}", r.Type, strings.Join(parts, ","))
	}
	return fmt.Sprintf("%s %g-%g", r.Type, r.Min, r.Max)
}

// truncate shortens s to max runes. Scheme names are German and carry
// umlauts, so byte slicing would split characters.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
