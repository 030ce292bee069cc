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

package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordinalDoc = `
id: neutrality
name: Neutrality
description: Judges how balanced the text is.
dimension: neutrality
kind: ordinal_rubric
output_range:
  type: int
  min: 1
  max: 5
labels:
  "5": Fully neutral
  "4": Mostly neutral
anchors:
  - value: 5
    label: Fully neutral
    criteria: No opinion or slant detectable.
  - value: 4
    label: Mostly neutral
    criteria: Minor slant in wording.
  - value: 3
    label: Partly neutral
  - value: 2
    label: Slanted
  - value: 1
    label: One-sided
`

const checklistDoc = `
id: accuracy
name: Accuracy
dimension: accuracy
kind: checklist_additive
output_range:
  type: float
  min: 0
  max: 5
aggregator:
  strategy: weighted_mean
  missing: ignore
  scale_factor: 5.0
items:
  - id: sources_named
    prompt: Are all claims backed by named sources?
    weight: 2.0
    values:
      "1": {score: 0.0, description: No sources named}
      "2": {score: 0.33, description: Some sources named}
      "3": {score: 0.67, description: Most sources named}
      "4": {score: 1.0, description: All sources named}
      "na": null
  - id: numbers_correct
    prompt: Are quoted figures plausible and consistent?
    weight: 1.0
    values:
      "1": 0.0
      "2": 0.5
      "3": 1.0
`

const gateDoc = `
id: minors_gate
name: Protection of minors
dimension: minors
kind: binary_gate
output_range:
  type: boolean
default_action: pass
rules:
  - id: explicit_violence
    description: Graphic depiction of violence.
    action: reject
    reason: Explicit violence without context
    severity: high
    scope: content
    confidence: 0.95
    trigger_keywords: [gore, torture]
    not_trigger_keywords: [historical context]
    evaluation_hint: Documentary framing is not a violation.
  - id: missing_age_label
    description: Required age label is absent.
    reason: Age label missing
    scope: platform
  - id: glorification
    description: Violence presented approvingly.
    reason: Glorification of violence
`

const derivedDoc = `
id: overall
name: Overall quality
dimension: overall
kind: derived
output_range:
  type: float
  min: 1
  max: 5
dependencies:
  - neutrality
  - accuracy
rules:
  - conditions:
      - dimension: neutrality
        operator: "<"
        value: 2
    value: 1.0
    label: Insufficient
    confidence: 0.95
  - conditions: []
    value: weighted_average
    label: Computed
    weights:
      neutrality: 2.0
      accuracy: 2.5
`

func TestParseOrdinal(t *testing.T) {
	s, err := Parse([]byte(ordinalDoc))
	require.NoError(t, err)

	assert.Equal(t, "neutrality", s.ID)
	assert.Equal(t, KindOrdinal, s.Kind)
	assert.Equal(t, "1.0", s.Version, "version should default")
	assert.Equal(t, ValueInt, s.OutputRange.Type)

	spec, ok := s.Spec.(*Ordinal)
	require.True(t, ok)
	assert.Equal(t, StrategyFirstMatch, spec.Strategy, "strategy should default to first_match")
	require.Len(t, spec.Anchors, 5)
	assert.Equal(t, 5, spec.Anchors[0].Value)
	assert.Equal(t, "Fully neutral", spec.Anchors[0].Label)
	assert.Equal(t, 1, spec.Anchors[4].Value)
}

func TestParseOrdinalBestFit(t *testing.T) {
	doc := `
id: depth
name: Depth
dimension: depth
kind: ordinal_rubric
strategy: best_fit
output_range:
  type: int
  values: [1, 3, 5]
anchors:
  - {value: 5, label: Deep}
  - {value: 3, label: Medium}
  - {value: 1, label: Shallow}
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	spec := s.Spec.(*Ordinal)
	assert.Equal(t, StrategyBestFit, spec.Strategy)
	assert.True(t, s.OutputRange.Contains(3))
	assert.False(t, s.OutputRange.Contains(2), "enumerated ranges admit listed values only")
}

func TestParseChecklist(t *testing.T) {
	s, err := Parse([]byte(checklistDoc))
	require.NoError(t, err)

	spec, ok := s.Spec.(*Checklist)
	require.True(t, ok)
	require.Len(t, spec.Items, 2)

	first := spec.Items[0]
	assert.True(t, first.AllowNA, "na entry in values should mark the item skippable")
	assert.Equal(t, 2.0, first.Weight)
	score, ok := first.Score(4)
	require.True(t, ok)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "Some sources named", first.Values["2"].Description)
	assert.Equal(t, []int{1, 2, 3, 4}, first.Levels())
	_, ok = first.Score(7)
	assert.False(t, ok)

	assert.False(t, spec.Items[1].AllowNA)
	assert.Equal(t, AggregateWeightedMean, spec.Aggregator.Strategy)
	assert.Equal(t, MissingIgnore, spec.Aggregator.Missing)
	assert.Equal(t, 5.0, spec.Aggregator.ScaleFactor)
}

func TestParseChecklistAggregatorDefaults(t *testing.T) {
	doc := `
id: c
name: C
dimension: c
kind: checklist
output_range:
  type: float
  min: 0
  max: 1
items:
  - id: only
    prompt: Single item?
    weight: 1.0
    values:
      "1": 0.0
      "2": 1.0
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	spec := s.Spec.(*Checklist)
	assert.Equal(t, MissingIgnore, spec.Aggregator.Missing)
	assert.Equal(t, 1.0, spec.Aggregator.ScaleFactor)
}

func TestParseGate(t *testing.T) {
	s, err := Parse([]byte(gateDoc))
	require.NoError(t, err)

	spec, ok := s.Spec.(*Gate)
	require.True(t, ok)
	assert.Equal(t, ActionPass, spec.DefaultAction)
	assert.Equal(t, GateAnd, spec.Logic)
	require.Len(t, spec.Rules, 3)

	assert.Equal(t, ScopeContent, spec.Rules[0].Scope)
	assert.Equal(t, ScopePlatform, spec.Rules[1].Scope)
	assert.Equal(t, ScopeBoth, spec.Rules[2].Scope, "scope should default to both")
	assert.Equal(t, ActionReject, spec.Rules[1].Action, "action should default to reject")
	assert.Equal(t, 0.95, spec.Rules[0].Confidence)
	assert.Equal(t, 0.9, spec.Rules[1].Confidence, "rule confidence should default")
	assert.Equal(t, []string{"gore", "torture"}, spec.Rules[0].TriggerKeywords)
	assert.Equal(t, []string{"historical context"}, spec.Rules[0].NotTriggerKeywords)
}

func TestParseDerived(t *testing.T) {
	s, err := Parse([]byte(derivedDoc))
	require.NoError(t, err)

	spec, ok := s.Spec.(*Derived)
	require.True(t, ok)
	require.Len(t, spec.Rules, 2)

	first := spec.Rules[0]
	require.True(t, first.Value.IsLiteral())
	assert.Equal(t, 1.0, *first.Value.Literal)
	assert.Equal(t, 0.95, first.Confidence)
	require.Len(t, first.Conditions, 1)
	assert.Equal(t, OpLt, first.Conditions[0].Operator)
	assert.Equal(t, float64(2), first.Conditions[0].Value, "condition numbers should widen to float64")

	second := spec.Rules[1]
	assert.False(t, second.Value.IsLiteral())
	assert.Equal(t, CombineWeightedAverage, second.Value.Method)
	assert.Equal(t, 0.9, second.Confidence, "confidence should default")
	assert.Empty(t, second.Conditions)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "missing id",
			doc: `
name: X
dimension: x
kind: derived
output_range: {type: float, min: 0, max: 1}
dependencies: []
rules: [{value: 0}]
`,
			wantErr: "id",
		},
		{
			name: "unknown kind",
			doc: `
id: x
name: X
dimension: x
kind: fuzzy
output_range: {type: float, min: 0, max: 1}
`,
			wantErr: "kind",
		},
		{
			name: "anchors not descending",
			doc: `
id: x
name: X
dimension: x
kind: ordinal
output_range: {type: int, min: 1, max: 3}
anchors:
  - {value: 1, label: Low}
  - {value: 3, label: High}
`,
			wantErr: "descending",
		},
		{
			name: "anchor outside range",
			doc: `
id: x
name: X
dimension: x
kind: ordinal
output_range: {type: int, min: 1, max: 3}
anchors:
  - {value: 9, label: Off the chart}
`,
			wantErr: "outside output range",
		},
		{
			name: "item score outside unit interval",
			doc: `
id: x
name: X
dimension: x
kind: checklist
output_range: {type: float, min: 0, max: 1}
items:
  - id: a
    prompt: A?
    weight: 1.0
    values: {"1": 2.0}
`,
			wantErr: "outside [0,1]",
		},
		{
			name: "unknown operator",
			doc: `
id: x
name: X
dimension: x
kind: derived
output_range: {type: float, min: 0, max: 1}
dependencies: [y]
rules:
  - conditions: [{dimension: y, operator: "~=", value: 1}]
    value: 0
`,
			wantErr: "operator",
		},
		{
			name: "boolean rule value",
			doc: `
id: x
name: X
dimension: x
kind: derived
output_range: {type: boolean}
dependencies: [y]
rules: [{value: true}]
`,
			wantErr: "combination method",
		},
		{
			name: "gate without boolean range",
			doc: `
id: x
name: X
dimension: x
kind: binary_gate
output_range: {type: int, min: 0, max: 1}
rules: [{id: r1, reason: R}]
`,
			wantErr: "boolean",
		},
		{
			name: "unknown top-level field",
			doc: `
id: x
name: X
dimension: x
kind: ordinal
output_range: {type: int, min: 1, max: 2}
anchors: [{value: 1, label: L}]
surprise: true
`,
			wantErr: "surprise",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01_neutrality.yaml"), []byte(ordinalDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "02_accuracy.yaml"), []byte(checklistDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03_overall.yaml"), []byte(derivedDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a scheme"), 0o644))

	reg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, reg.Len())

	ids := make([]string, 0, 3)
	for _, s := range reg.List(ListFilter{}) {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"neutrality", "accuracy", "overall"}, ids, "listing should follow file order")
}

func TestLoadDirDuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(ordinalDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(ordinalDoc), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestLoadDirMissingDependency(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "overall.yaml"), []byte(derivedDoc), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scheme")
}
