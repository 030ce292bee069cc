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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/rubric/pkg/schema"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "4", formatValue(4))
	assert.Equal(t, "4", formatValue(4.0))
	assert.Equal(t, "4.25", formatValue(4.25))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, "false", formatValue(false))
}

func TestResolveLabel(t *testing.T) {
	s := &schema.Scheme{
		Labels: map[string]string{
			"5":        "Sehr gut",
			"4.5-4.99": "Fast sehr gut",
			"3.5-4.49": "Gut",
			"0.0-3.49": "Ausbaufähig",
		},
	}

	assert.Equal(t, "Sehr gut", resolveLabel(s, 5, ""), "exact key beats range keys")
	assert.Equal(t, "Sehr gut", resolveLabel(s, 5.0, ""))
	assert.Equal(t, "Gut", resolveLabel(s, 4.49, ""), "range bounds are inclusive")
	assert.Equal(t, "Fast sehr gut", resolveLabel(s, 4.5, ""))
	assert.Equal(t, "Ausbaufähig", resolveLabel(s, 0.0, ""))
	assert.Equal(t, "fallback", resolveLabel(s, 99.0, "fallback"))

	empty := &schema.Scheme{}
	assert.Equal(t, "Anker", resolveLabel(empty, 3, "Anker"))
	assert.Equal(t, "", resolveLabel(empty, 3, ""))
}

func TestResolveLabelBooleanKeys(t *testing.T) {
	s := &schema.Scheme{
		Labels: map[string]string{"true": "COMPLIANCE", "false": "NON_COMPLIANCE"},
	}
	assert.Equal(t, "COMPLIANCE", resolveLabel(s, true, ""))
	assert.Equal(t, "NON_COMPLIANCE", resolveLabel(s, false, ""))
}

func TestGateLabelDefaults(t *testing.T) {
	s := &schema.Scheme{}
	assert.Equal(t, "BESTANDEN", gateLabel(s, true))
	assert.Equal(t, "NICHT BESTANDEN", gateLabel(s, false))

	labeled := &schema.Scheme{Labels: map[string]string{"false": "VERSTOSS"}}
	assert.Equal(t, "VERSTOSS", gateLabel(labeled, false))
	assert.Equal(t, "BESTANDEN", gateLabel(labeled, true))
}

func TestTypedValue(t *testing.T) {
	intScheme := &schema.Scheme{OutputRange: schema.OutputRange{Type: schema.ValueInt, Min: 1, Max: 5}}
	assert.Equal(t, 4, typedValue(intScheme, 4.2))
	assert.Equal(t, 5, typedValue(intScheme, 7.0), "values clamp into the range")
	assert.Equal(t, 1, typedValue(intScheme, -3.0))

	floatScheme := &schema.Scheme{OutputRange: schema.OutputRange{Type: schema.ValueFloat, Min: 0, Max: 5}}
	assert.Equal(t, 4.17, typedValue(floatScheme, 4.16666))
	assert.Equal(t, 5.0, typedValue(floatScheme, 9.0))

	enumScheme := &schema.Scheme{OutputRange: schema.OutputRange{Type: schema.ValueInt, Values: []float64{1, 3, 5}}}
	assert.Equal(t, 3, typedValue(enumScheme, 2.9), "enumerated ranges snap to the nearest value")
	assert.Equal(t, 5, typedValue(enumScheme, 17.0))
}

func TestNearestAnchor(t *testing.T) {
	spec := &schema.Ordinal{Anchors: []schema.Anchor{
		{Value: 5, Label: "Top"},
		{Value: 3, Label: "Mitte"},
		{Value: 1, Label: "Unten"},
	}}
	assert.Equal(t, 3, nearestAnchor(spec, 3).Value)
	assert.Equal(t, 5, nearestAnchor(spec, 4).Value, "ties go to the higher anchor")
	assert.Equal(t, 1, nearestAnchor(spec, -2).Value)
	assert.Equal(t, 5, nearestAnchor(spec, 11).Value)
}

func TestBuildGateReasoning(t *testing.T) {
	got := buildGateReasoning(false, "Explizite Gewalt ohne Einordnung")
	assert.Equal(t, "**Ergebnis:** NICHT BESTANDEN\n\n**Begründung:** Explizite Gewalt ohne Einordnung", got)
}

func TestBuildOrdinalReasoning(t *testing.T) {
	got := buildOrdinalReasoning(4, "Gut", "Stimmige Argumentation.")
	assert.Equal(t, "**Bewertung:** Level 4 - Gut\n\n**Begründung:** Stimmige Argumentation.", got)
}

func TestBuildChecklistReasoning(t *testing.T) {
	s := &schema.Scheme{Name: "Sachrichtigkeit"}
	spec := &schema.Checklist{Items: []schema.ChecklistItem{
		{ID: "quellen", Prompt: "Sind Quellen benannt?"},
		{ID: "zahlen", Prompt: "Stimmen die Zahlen?"},
	}}
	score := 1.0
	agg := &checklistAggregate{
		Base: 0.8333,
		Criteria: map[string]any{
			"quellen": &ItemDetail{Response: "Stufe 3", NormalizedScore: &score, Reasoning: "Zwei Quellen.\nDetails folgen."},
			"zahlen":  &ItemDetail{Response: "na"},
		},
	}

	got := buildChecklistReasoning(s, spec, agg)

	assert.Contains(t, got, "Bewertung für Sachrichtigkeit: 83% der möglichen Punkte erreicht.")
	assert.Contains(t, got, "- Sind Quellen benannt?: Stufe 3 – Zwei Quellen.")
	assert.NotContains(t, got, "Details folgen", "only the first reasoning line is kept")
	assert.Contains(t, got, "- Stimmen die Zahlen?: na")
}

func TestBuildAverageReasoning(t *testing.T) {
	deps := []*Result{
		{Dimension: "neutralitaet", Value: 4, Label: "Überwiegend neutral"},
		{Dimension: "sachrichtigkeit", Value: 4.5, Label: "Gut"},
		{Dimension: "extra", Value: 2, Label: "Egal"},
	}
	got := buildAverageReasoning(4.3, deps, map[string]float64{"neutralitaet": 2, "sachrichtigkeit": 2.5})

	assert.Contains(t, got, "**Gewichteter Durchschnitt:** 4.3")
	assert.Contains(t, got, "- neutralitaet: 4 (Überwiegend neutral) × Gewicht 2")
	assert.Contains(t, got, "- sachrichtigkeit: 4.5 (Gut) × Gewicht 2.5")
	assert.NotContains(t, got, "extra", "unweighted dimensions stay out")
}

func TestBuildComplianceReasoning(t *testing.T) {
	deps := []*Result{
		{Dimension: "jugendschutz", Value: true},
		{Dimension: "strafrecht", Value: false},
	}
	got := buildComplianceReasoning("NON_COMPLIANCE", deps)

	assert.Contains(t, got, "**Ergebnis:** NON_COMPLIANCE")
	assert.Contains(t, got, "- ✅ jugendschutz: BESTANDEN")
	assert.Contains(t, got, "- ❌ strafrecht: NICHT BESTANDEN")
}
