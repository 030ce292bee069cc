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

package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/rubric/pkg/evaluation"
	"github.com/teradata-labs/rubric/pkg/schema"
)

// stubJudge scripts model responses by matching the prompt against the
// scheme name it always carries.
type stubJudge struct {
	responses map[string]string
}

func (s *stubJudge) Judge(_ context.Context, _, user string, _ float64, _ int) (string, error) {
	for needle, response := range s.responses {
		if strings.Contains(user, needle) {
			return response, nil
		}
	}
	return "", errors.New("no scripted response for prompt")
}

func (s *stubJudge) Name() string  { return "stub" }
func (s *stubJudge) Model() string { return "stub-model" }

const neutralityDoc = `
id: neutralitaet_old
name: Neutralität
description: Politische und weltanschauliche Ausgewogenheit.
version: "1.0"
dimension: neutralitaet
kind: ordinal_rubric
output_range:
  type: int
  min: 1
  max: 5
labels:
  "5": Vollständig neutral
  "4": Überwiegend neutral
  "3": Teilweise neutral
  "2": Einseitig
  "1": Stark einseitig
anchors:
  - {value: 5, label: Vollständig neutral}
  - {value: 4, label: Überwiegend neutral}
  - {value: 3, label: Teilweise neutral}
  - {value: 2, label: Einseitig}
  - {value: 1, label: Stark einseitig}
`

const neutralityPartDoc = `
id: neutralitaet_old_part1
name: Neutralität (Teil 1)
dimension: neutralitaet
kind: ordinal_rubric
output_range:
  type: int
  min: 1
  max: 5
anchors:
  - {value: 5, label: Vollständig neutral}
  - {value: 1, label: Stark einseitig}
`

const minorsGateDoc = `
id: jugendschutz_gate
name: Jugendschutz
dimension: jugendschutz
kind: binary_gate
output_range:
  type: boolean
default_action: pass
rules:
  - id: gewalt
    description: Explizite Gewaltdarstellung ohne Einordnung.
    action: reject
    reason: Explizite Gewalt ohne Einordnung
    severity: hoch
    scope: content
  - id: alterskennzeichnung
    description: Die vorgeschriebene Alterskennzeichnung fehlt.
    reason: Alterskennzeichnung fehlt
    scope: platform
`

const complianceDoc = `
id: rechtliche_compliance
name: Rechtliche Compliance
dimension: compliance
kind: derived
output_range:
  type: boolean
labels:
  "true": COMPLIANCE
  "false": NON_COMPLIANCE
dependencies:
  - jugendschutz_gate
rules:
  - conditions: []
    value: and_gate
`

func newTestServer(t *testing.T, j *stubJudge, docs ...string) *Server {
	t.Helper()
	reg := schema.NewRegistry()
	for _, doc := range docs {
		s, err := schema.Parse([]byte(doc))
		require.NoError(t, err)
		require.NoError(t, reg.Register(s))
	}
	engine := evaluation.NewEngine(evaluation.Config{Registry: reg, Judge: j})
	return New(Config{Registry: reg, Engine: engine, Addr: ":0"})
}

func defaultJudge() *stubJudge {
	return &stubJudge{responses: map[string]string{
		"Neutralität":  `{"value": 4, "reasoning": "Weitgehend ausgewogen.", "confidence": 0.85}`,
		"Jugendschutz": `{"gewalt": {"triggered": false, "reasoning": "Keine Gewaltdarstellung."}}`,
	}}
}
