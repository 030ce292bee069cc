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
	"encoding/json"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/teradata-labs/rubric/internal/version"
	"github.com/teradata-labs/rubric/pkg/evaluation"
	"github.com/teradata-labs/rubric/pkg/schema"
)

// Request validation bounds. Texts shorter than the minimum carry too
// little signal to judge; the maximum keeps a single request inside one
// judge context window.
const (
	minTextChars = 10
	maxTextChars = 50000
	maxSchemes   = 10
)

type evaluateRequest struct {
	Text             string   `json:"text"`
	Schemes          []string `json:"schemes"`
	ContextType      string   `json:"context_type"`
	IncludeReasoning *bool    `json:"include_reasoning"`
}

type evaluateMetadata struct {
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	ModelUsed        string   `json:"model_used"`
	IncludeReasoning bool     `json:"include_reasoning"`
	FailedSchemes    []string `json:"failed_schemes,omitempty"`
}

type evaluateProvenance struct {
	Timestamp    string `json:"timestamp"`
	APIVersion   string `json:"api_version"`
	TextLength   int    `json:"text_length"`
	SchemesCount int    `json:"schemes_count"`
	RequestID    string `json:"request_id,omitempty"`
}

type evaluateResponse struct {
	Results      []*evaluation.Result `json:"results"`
	GatesPassed  bool                 `json:"gates_passed"`
	OverallScore *float64             `json:"overall_score,omitempty"`
	OverallLabel string               `json:"overall_label,omitempty"`
	Metadata     evaluateMetadata     `json:"metadata"`
	Provenance   evaluateProvenance   `json:"provenance"`
}

// handleEvaluate runs the requested schemes against the submitted text.
// Validation failures get a 400; a scheme that fails mid-evaluation is
// reported in its own entry and in metadata.failed_schemes, the request
// still answers 200.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	scope, err := validateEvaluateRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	includeReasoning := true
	if req.IncludeReasoning != nil {
		includeReasoning = *req.IncludeReasoning
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	start := time.Now()
	report := s.engine.Evaluate(ctx, evaluation.Request{
		Text:             req.Text,
		SchemeIDs:        req.Schemes,
		Context:          scope,
		IncludeReasoning: includeReasoning,
	})

	writeJSON(w, http.StatusOK, evaluateResponse{
		Results:      report.Results,
		GatesPassed:  report.GatesPassed,
		OverallScore: report.OverallScore,
		OverallLabel: report.OverallLabel,
		Metadata: evaluateMetadata{
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			ModelUsed:        report.ModelUsed,
			IncludeReasoning: includeReasoning,
			FailedSchemes:    report.FailedSchemes,
		},
		Provenance: evaluateProvenance{
			Timestamp:    start.UTC().Format(time.RFC3339),
			APIVersion:   version.Version,
			TextLength:   utf8.RuneCountInString(req.Text),
			SchemesCount: len(req.Schemes),
			RequestID:    RequestID(r.Context()),
		},
	})
}

// validateEvaluateRequest checks the request bounds and resolves the
// context scope. Unknown scheme ids pass validation on purpose: the
// engine answers them with a per-entry error result so one bad id never
// sinks the rest of the request.
func validateEvaluateRequest(req *evaluateRequest) (schema.Scope, error) {
	n := utf8.RuneCountInString(req.Text)
	if n < minTextChars || n > maxTextChars {
		return "", fmt.Errorf("text must be between %d and %d characters, got %d", minTextChars, maxTextChars, n)
	}
	if len(req.Schemes) == 0 {
		return "", fmt.Errorf("schemes must name at least one scheme")
	}
	if len(req.Schemes) > maxSchemes {
		return "", fmt.Errorf("schemes must name at most %d schemes, got %d", maxSchemes, len(req.Schemes))
	}

	if req.ContextType == "" {
		return schema.ScopeContent, nil
	}
	scope, err := schema.ParseScope(req.ContextType)
	if err != nil {
		return "", err
	}
	return scope, nil
}
