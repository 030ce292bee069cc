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
	"math"
	"strconv"
	"strings"

	"github.com/teradata-labs/rubric/pkg/schema"
)

// Labels gates fall back to when the scheme declares none.
const (
	labelPassed    = "BESTANDEN"
	labelRejected  = "NICHT BESTANDEN"
	labelUnscored  = "Unbewertet"
	reasonFallback = "Bewertung fehlgeschlagen."
)

// formatValue renders a result value the way label keys are written:
// booleans as true/false, numbers without trailing zeros.
func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// resolveLabel maps a value onto the scheme's label set: exact key
// first, then inclusive "lo-hi" range keys, then the caller's fallback.
// The value is compared as given; callers hand in the same rounded
// value the response reports.
func resolveLabel(s *schema.Scheme, value any, fallback string) string {
	if len(s.Labels) > 0 {
		if label, ok := s.Labels[formatValue(value)]; ok {
			return label
		}
		if n, ok := toNumber(value); ok {
			if _, isBool := value.(bool); !isBool {
				for _, key := range sortedKeys(s.Labels) {
					lo, hi, ok := parseRangeKey(key)
					if ok && n >= lo && n <= hi {
						return s.Labels[key]
					}
				}
			}
		}
	}
	return fallback
}

func parseRangeKey(key string) (lo, hi float64, ok bool) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	return lo, hi, err1 == nil && err2 == nil && lo <= hi
}

// gateLabel resolves the label for a gate outcome, defaulting to the
// German pass/fail pair.
func gateLabel(s *schema.Scheme, passed bool) string {
	fallback := labelPassed
	if !passed {
		fallback = labelRejected
	}
	return resolveLabel(s, passed, fallback)
}

// typedValue converts a numeric value to the scheme's declared output
// type, clamped into its range and rounded for presentation.
func typedValue(s *schema.Scheme, v float64) any {
	v = clampNumeric(s.OutputRange, v)
	if s.OutputRange.Type == schema.ValueInt {
		return int(math.Round(v))
	}
	return round2(v)
}

// clampNumeric forces v into the scheme's range. Enumerated ranges snap
// to the nearest listed value.
func clampNumeric(r schema.OutputRange, v float64) float64 {
	if len(r.Values) > 0 {
		best := r.Values[0]
		for _, candidate := range r.Values[1:] {
			if math.Abs(candidate-v) < math.Abs(best-v) {
				best = candidate
			}
		}
		return best
	}
	return math.Min(r.Max, math.Max(r.Min, v))
}

// nearestAnchor snaps a judged level to a defined anchor. Ties go to the
// anchor declared first, which is the higher level.
func nearestAnchor(spec *schema.Ordinal, judged int) schema.Anchor {
	best := spec.Anchors[0]
	for _, a := range spec.Anchors[1:] {
		if abs(a.Value-judged) < abs(best.Value-judged) {
			best = a
		}
	}
	return best
}

func ordinalScaleInfo(s *schema.Scheme, spec *schema.Ordinal) map[string]any {
	return map[string]any{
		"type":    string(schema.KindOrdinal),
		"range":   fmt.Sprintf("%s-%s", formatValue(s.OutputRange.Min), formatValue(s.OutputRange.Max)),
		"anchors": len(spec.Anchors),
	}
}

func checklistScaleInfo(s *schema.Scheme) map[string]any {
	return map[string]any{
		"type":             string(schema.KindChecklist),
		"raw_range":        "0.0-1.0",
		"normalized_range": fmt.Sprintf("%s-%s", formatValue(s.OutputRange.Min), formatValue(s.OutputRange.Max)),
	}
}

func gateScaleInfo(rules int) map[string]any {
	return map[string]any{
		"type":  string(schema.KindGate),
		"rules": rules,
	}
}

func derivedScaleInfo(method string, deps int, weights map[string]float64) map[string]any {
	info := map[string]any{
		"type":         string(schema.KindDerived),
		"method":       method,
		"dependencies": deps,
	}
	if len(weights) > 0 {
		info["weights"] = weights
	}
	return info
}

// buildOrdinalReasoning wraps the judge's free-text justification with
// the chosen level.
func buildOrdinalReasoning(value int, label, reasoning string) string {
	return fmt.Sprintf("**Bewertung:** Level %d - %s\n\n**Begründung:** %s", value, label, reasoning)
}

// buildGateReasoning wraps the decisive justification with the verdict.
func buildGateReasoning(passed bool, reasoning string) string {
	verdict := labelPassed
	if !passed {
		verdict = labelRejected
	}
	return fmt.Sprintf("**Ergebnis:** %s\n\n**Begründung:** %s", verdict, reasoning)
}

// buildChecklistReasoning summarizes a checklist fold without another
// model call: the reached share of points plus one line per item in
// declaration order.
func buildChecklistReasoning(s *schema.Scheme, spec *schema.Checklist, agg *checklistAggregate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bewertung für %s: %.0f%% der möglichen Punkte erreicht.\n", s.Name, agg.Base*100)
	for _, item := range spec.Items {
		detail, ok := agg.Criteria[item.ID].(*ItemDetail)
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "\n- %s: %s", item.Prompt, detail.Response)
		if detail.Reasoning != "" {
			fmt.Fprintf(&sb, " – %s", firstLine(detail.Reasoning))
		}
	}
	return sb.String()
}

// buildAverageReasoning explains a weighted_average rule from the
// dependency results that entered it.
func buildAverageReasoning(value float64, deps []*Result, weights map[string]float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Gewichteter Durchschnitt:** %s\n\n**Einzelbewertungen:**", formatValue(round2(value)))
	seen := make(map[string]bool, len(deps))
	for _, d := range deps {
		w, ok := weights[d.Dimension]
		if !ok || seen[d.Dimension] {
			continue
		}
		seen[d.Dimension] = true
		fmt.Fprintf(&sb, "\n- %s: %s (%s) × Gewicht %s", d.Dimension, formatValue(d.Value), d.Label, formatValue(w))
	}
	return sb.String()
}

// buildComplianceReasoning explains an and_gate/or_gate rule with one
// pass/fail line per dependency.
func buildComplianceReasoning(label string, deps []*Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Ergebnis:** %s\n\n**Einzelprüfungen:**", label)
	for _, d := range deps {
		mark, verdict := "✅", labelPassed
		if !truthy(d.Value) {
			mark, verdict = "❌", labelRejected
		}
		fmt.Fprintf(&sb, "\n- %s %s: %s", mark, d.Dimension, verdict)
	}
	return sb.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
