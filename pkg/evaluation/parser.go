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
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// extractJSON isolates the JSON object in a model response. Models
// often wrap the object in prose or markdown fences despite the
// instructions, so everything outside the outermost braces is dropped.
func extractJSON(response string) (string, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", errors.New("no JSON object found in response")
	}
	return response[start : end+1], nil
}

// ordinalVerdict is the judge's answer to an ordinal prompt.
type ordinalVerdict struct {
	Value      int
	Reasoning  string
	Confidence float64
}

// parseOrdinalVerdict decodes {"value": n, "reasoning": ..., "confidence": ...}.
// A missing confidence defaults to 0.8; a missing value is an error.
func parseOrdinalVerdict(response string) (*ordinalVerdict, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	var wire struct {
		Value      *float64 `json:"value"`
		Reasoning  string   `json:"reasoning"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	if wire.Value == nil {
		return nil, errors.New("verdict has no value field")
	}
	v := &ordinalVerdict{
		Value:      int(math.Round(*wire.Value)),
		Reasoning:  wire.Reasoning,
		Confidence: 0.8,
	}
	if wire.Confidence != nil {
		v.Confidence = clamp01(*wire.Confidence)
	}
	return v, nil
}

// itemVerdict is the judge's answer for one checklist item.
type itemVerdict struct {
	// Level is the chosen integer level, or -1 when the judge answered
	// "na".
	Level     int
	NA        bool
	Reasoning string
	// Confidence is negative when the judge did not report one.
	Confidence float64
}

// parseChecklistVerdict decodes {"<item_id>": {"level": n|"na", ...}}.
// Items the model skipped are simply absent from the returned map; the
// aggregator applies the scheme's missing policy.
func parseChecklistVerdict(response string) (map[string]itemVerdict, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	var wire map[string]struct {
		Level      any      `json:"level"`
		Reasoning  string   `json:"reasoning"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	if len(wire) == 0 {
		return nil, errors.New("verdict has no items")
	}

	verdicts := make(map[string]itemVerdict, len(wire))
	for id, entry := range wire {
		v := itemVerdict{Reasoning: entry.Reasoning, Confidence: -1}
		if entry.Confidence != nil {
			v.Confidence = clamp01(*entry.Confidence)
		}
		switch level := entry.Level.(type) {
		case float64:
			v.Level = int(math.Round(level))
		case string:
			if strings.EqualFold(strings.TrimSpace(level), "na") {
				v.NA = true
				v.Level = -1
			} else {
				// Some models quote the number.
				var f float64
				if _, err := fmt.Sscanf(level, "%f", &f); err != nil {
					continue
				}
				v.Level = int(math.Round(f))
			}
		default:
			continue
		}
		verdicts[id] = v
	}
	if len(verdicts) == 0 {
		return nil, errors.New("verdict has no usable items")
	}
	return verdicts, nil
}

// ruleVerdict is the judge's answer for one gate rule.
type ruleVerdict struct {
	Triggered bool
	Reasoning string
}

// parseGateVerdict decodes {"<rule_id>": {"triggered": bool, ...}}.
// Besides JSON booleans, the German and English yes/no spellings models
// occasionally produce are accepted.
func parseGateVerdict(response string) (map[string]ruleVerdict, error) {
	raw, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	var wire map[string]struct {
		Triggered any    `json:"triggered"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("decoding verdict: %w", err)
	}
	if len(wire) == 0 {
		return nil, errors.New("verdict has no rules")
	}

	verdicts := make(map[string]ruleVerdict, len(wire))
	for id, entry := range wire {
		triggered, ok := asBool(entry.Triggered)
		if !ok {
			continue
		}
		verdicts[id] = ruleVerdict{Triggered: triggered, Reasoning: entry.Reasoning}
	}
	if len(verdicts) == 0 {
		return nil, errors.New("verdict has no usable rules")
	}
	return verdicts, nil
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "ja", "yes":
			return true, true
		case "false", "nein", "no":
			return false, true
		}
	}
	return false, false
}

func clamp01(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}
