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

// Package evaluation runs evaluation schemes against a text. The engine
// walks the scheme dependency graph concurrently, asks the configured
// judge model to score leaf schemes, and folds derived schemes from
// their dependency results without further model calls. Results are
// memoized per request so shared dependencies are judged once.
package evaluation

import "math"

// Result is the outcome of one scheme evaluated against one text.
// Value is an int, float64, or bool matching the scheme's output range.
type Result struct {
	SchemeID       string         `json:"scheme_id"`
	Dimension      string         `json:"dimension"`
	Value          any            `json:"value"`
	Label          string         `json:"label"`
	Confidence     float64        `json:"confidence"`
	Reasoning      string         `json:"reasoning,omitempty"`
	Criteria       map[string]any `json:"criteria,omitempty"`
	ScaleInfo      map[string]any `json:"scale_info,omitempty"`
	NAReason       string         `json:"na_reason,omitempty"`
	Severity       string         `json:"severity,omitempty"`
	LegalReference string         `json:"legal_reference,omitempty"`
}

// Failed reports whether the result is a fallback produced after the
// scheme's evaluation errored out.
func (r *Result) Failed() bool { return r.NAReason != "" }

// WithoutReasoning returns a copy with the reasoning and the per-item
// criteria breakdown removed. Nested results only occur inside Criteria,
// so dropping the map strips them too.
func (r *Result) WithoutReasoning() *Result {
	c := *r
	c.Reasoning = ""
	c.Criteria = nil
	return &c
}

// ItemDetail is the per-item breakdown a checklist result carries under
// Criteria, keyed by item id.
type ItemDetail struct {
	Name            string   `json:"name"`
	Response        string   `json:"response"`
	NormalizedScore *float64 `json:"normalized_score"`
	Weight          float64  `json:"weight"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

// RuleDetail is the per-rule breakdown a gate result carries under
// Criteria, keyed by rule id.
type RuleDetail struct {
	Triggered bool   `json:"triggered"`
	Passed    bool   `json:"passed"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// DependencyDetail nests a dependency's result into a derived result's
// Criteria together with the weight the matched rule assigned to it.
type DependencyDetail struct {
	*Result
	Weight float64 `json:"weight,omitempty"`
}

// Report is the aggregate outcome of one evaluation request.
type Report struct {
	// Results holds one entry per requested scheme id, in request order.
	Results []*Result

	// GatesPassed is the AND over every binary gate in Results. True when
	// the request contained no gates.
	GatesPassed bool

	// OverallScore is the mean of all numeric result values, nil when the
	// request produced none.
	OverallScore *float64

	// OverallLabel is the label of the first numeric result.
	OverallLabel string

	// FailedSchemes lists the ids that settled on a fallback result.
	FailedSchemes []string

	// ModelUsed names the judge model that scored the leaf schemes.
	ModelUsed string
}

// round2 rounds to two decimals for presentation. Range and label
// matching happen on the unrounded value.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
