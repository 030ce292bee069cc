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

package evaluation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teradata-labs/rubric/pkg/schema"
)

// systemPrompt pins the judge to German reasoning and bare-JSON output.
const systemPrompt = "Sie sind ein strenger, sorgfältiger Gutachter für Bildungsinhalte. " +
	"Begründen Sie Ihre Bewertungen auf Deutsch. " +
	"Antworten Sie ausschließlich mit einem einzigen JSON-Objekt, ohne Text davor oder danach."

// promptTokenWarnLimit is the estimated token count above which a prompt
// is likely to crowd the model's context window.
const promptTokenWarnLimit = 100_000

// buildOrdinalPrompt asks the judge to place the text on one anchored
// level. Anchors appear top-down exactly as declared.
func buildOrdinalPrompt(text string, s *schema.Scheme, spec *schema.Ordinal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bewerten Sie diesen Text in der Dimension %q.\n\n", s.Name)

	sb.WriteString("## TEXT\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	if s.Criteria != "" {
		sb.WriteString("## BEWERTUNGSKRITERIEN\n")
		sb.WriteString(s.Criteria)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## BEWERTUNGSSTUFEN\n")
	for _, a := range spec.Anchors {
		fmt.Fprintf(&sb, "Stufe %d – %s", a.Value, a.Label)
		if a.Criteria != "" {
			fmt.Fprintf(&sb, ": %s", a.Criteria)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n## VORGEHEN\n")
	switch spec.Strategy {
	case schema.StrategyBestFit:
		sb.WriteString("Wählen Sie die Stufe, deren Beschreibung insgesamt am besten zum Text passt.\n")
	default:
		sb.WriteString("Prüfen Sie die Stufen von oben nach unten und wählen Sie die erste Stufe, deren Kriterien der Text vollständig erfüllt.\n")
	}

	sb.WriteString("\nReturn ONLY a JSON object with this structure:\n")
	sb.WriteString(`{"value": <Stufe als Zahl>, "reasoning": "<Begründung auf Deutsch>", "confidence": <Zahl zwischen 0.0 und 1.0>}`)
	sb.WriteString("\n")
	return sb.String()
}

// buildChecklistPrompt asks the judge to grade every item in one call.
// Weights, the aggregator, and the output range are engine internals and
// never reach the model.
func buildChecklistPrompt(text string, s *schema.Scheme, spec *schema.Checklist) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bewerten Sie diesen Text anhand der folgenden Kriterienliste für %q.\n\n", s.Name)

	sb.WriteString("## TEXT\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	if s.Criteria != "" {
		sb.WriteString("## BEWERTUNGSKRITERIEN\n")
		sb.WriteString(s.Criteria)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## KRITERIEN\n")
	for i, item := range spec.Items {
		fmt.Fprintf(&sb, "%d. %s [ID: %s]\n", i+1, item.Prompt, item.ID)
		writeItemLevels(&sb, item)
		if item.AllowNA {
			sb.WriteString("   Antworten Sie mit \"na\", wenn das Kriterium auf diesen Text nicht anwendbar ist.\n")
		}
	}

	sb.WriteString("\n## VORGEHEN\n")
	sb.WriteString("Bewerten Sie jedes Kriterium unabhängig und wählen Sie je Kriterium genau eine Stufe.\n")

	sb.WriteString("\nReturn ONLY a JSON object with this structure:\n")
	sb.WriteString(`{"<kriterium_id>": {"level": <Stufe als Zahl oder "na">, "reasoning": "<kurze Begründung>"}}`)
	sb.WriteString("\nmit genau einem Eintrag je Kriterium.\n")
	return sb.String()
}

// writeItemLevels lists an item's selectable levels. Level descriptions
// are shown when the scheme declares them; scores stay internal.
func writeItemLevels(sb *strings.Builder, item schema.ChecklistItem) {
	levels := item.Levels()
	described := false
	for _, l := range levels {
		if item.Values[strconv.Itoa(l)].Description != "" {
			described = true
			break
		}
	}
	if !described {
		parts := make([]string, len(levels))
		for i, l := range levels {
			parts[i] = strconv.Itoa(l)
		}
		fmt.Fprintf(sb, "   Mögliche Stufen: %s\n", strings.Join(parts, ", "))
		return
	}
	sb.WriteString("   Stufen:\n")
	for _, l := range levels {
		key := strconv.Itoa(l)
		fmt.Fprintf(sb, "   %s: %s\n", key, item.Values[key].Description)
	}
}

// scopedRules returns the gate rules active under the requested context,
// keeping declaration order.
func scopedRules(spec *schema.Gate, requested schema.Scope) []schema.GateRule {
	rules := make([]schema.GateRule, 0, len(spec.Rules))
	for _, r := range spec.Rules {
		if r.Scope.Matches(requested) {
			rules = append(rules, r)
		}
	}
	return rules
}

// buildGatePrompt asks the judge to check each scoped rule independently.
// Callers pass the rules returned by scopedRules so the verdict walk sees
// the same set the model saw.
func buildGatePrompt(text string, s *schema.Scheme, rules []schema.GateRule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Prüfen Sie diesen Text auf Verstöße in der Dimension %q.\n\n", s.Name)

	sb.WriteString("## TEXT\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	if s.Criteria != "" {
		sb.WriteString("## PRÜFKRITERIEN\n")
		sb.WriteString(s.Criteria)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## REGELN\n")
	for _, r := range rules {
		fmt.Fprintf(&sb, "### %s\n", r.ID)
		if r.Description != "" {
			sb.WriteString(r.Description)
			sb.WriteString("\n")
		}
		if len(r.TriggerKeywords) > 0 {
			fmt.Fprintf(&sb, "Typische Signale: %s\n", strings.Join(r.TriggerKeywords, ", "))
		}
		if len(r.NotTriggerKeywords) > 0 {
			fmt.Fprintf(&sb, "Kein Verstoß bei: %s\n", strings.Join(r.NotTriggerKeywords, ", "))
		}
		if r.EvaluationHint != "" {
			fmt.Fprintf(&sb, "Hinweis: %s\n", r.EvaluationHint)
		}
	}

	sb.WriteString("\n## VORGEHEN\n")
	sb.WriteString("Prüfen Sie jede Regel unabhängig von den anderen. Eine Regel ist ausgelöst, wenn der Text den beschriebenen Verstoß tatsächlich enthält.\n")

	sb.WriteString("\nReturn ONLY a JSON object with this structure:\n")
	sb.WriteString(`{"<regel_id>": {"triggered": <true oder false>, "reasoning": "<kurze Begründung>"}}`)
	sb.WriteString("\nmit genau einem Eintrag je Regel.\n")
	return sb.String()
}

// sortedKeys returns map keys in stable order for deterministic output.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
