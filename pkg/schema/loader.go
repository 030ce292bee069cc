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
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// metaSchemaJSON is the structural contract every scheme file must meet
// before typed decoding. Semantic checks happen afterwards in Go.
//
//go:embed metaschema.json
var metaSchemaJSON []byte

// schemeYAML mirrors a scheme file on disk. One struct covers all four
// kinds; the meta schema enforces which sections each kind requires.
type schemeYAML struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Description   string            `yaml:"description"`
	Version       string            `yaml:"version"`
	Dimension     string            `yaml:"dimension"`
	Kind          string            `yaml:"kind"`
	Criteria      string            `yaml:"criteria"`
	OutputRange   outputRangeYAML   `yaml:"output_range"`
	Labels        map[string]string `yaml:"labels"`
	Default       *defaultYAML      `yaml:"default"`
	Dependencies  []string          `yaml:"dependencies"`
	Strategy      string            `yaml:"strategy"`
	Anchors       []anchorYAML      `yaml:"anchors"`
	Items         []itemYAML        `yaml:"items"`
	Aggregator    *aggregatorYAML   `yaml:"aggregator"`
	Rules         []ruleYAML        `yaml:"rules"`
	DefaultAction string            `yaml:"default_action"`
	GateLogic     string            `yaml:"gate_logic"`
}

type outputRangeYAML struct {
	Type   string    `yaml:"type"`
	Min    float64   `yaml:"min"`
	Max    float64   `yaml:"max"`
	Values []float64 `yaml:"values"`
}

type defaultYAML struct {
	Value      any     `yaml:"value"`
	Label      string  `yaml:"label"`
	Reasoning  string  `yaml:"reasoning"`
	Confidence float64 `yaml:"confidence"`
}

type anchorYAML struct {
	Value    int    `yaml:"value"`
	Label    string `yaml:"label"`
	Criteria string `yaml:"criteria"`
}

type itemYAML struct {
	ID      string                `yaml:"id"`
	Prompt  string                `yaml:"prompt"`
	Weight  float64               `yaml:"weight"`
	Values  map[string]*levelYAML `yaml:"values"`
	AllowNA bool                  `yaml:"allow_na"`
}

// levelYAML accepts both spellings of a checklist level: a bare score
//
//	"2": 0.5
//
// or a score with a judge-visible description
//
//	"2": {score: 0.5, description: "Teilweise erfüllt"}
type levelYAML struct {
	Score       float64
	Description string
}

func (l *levelYAML) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&l.Score)
	case yaml.MappingNode:
		var full struct {
			Score       float64 `yaml:"score"`
			Description string  `yaml:"description"`
		}
		if err := node.Decode(&full); err != nil {
			return err
		}
		l.Score = full.Score
		l.Description = full.Description
		return nil
	default:
		return errors.New("level must be a number or a score object")
	}
}

type aggregatorYAML struct {
	Strategy    string  `yaml:"strategy"`
	Missing     string  `yaml:"missing"`
	ScaleFactor float64 `yaml:"scale_factor"`
}

// ruleYAML carries both gate rule and derived rule fields; the scheme
// kind decides which subset is read.
type ruleYAML struct {
	ID                 string             `yaml:"id"`
	Description        string             `yaml:"description"`
	Action             string             `yaml:"action"`
	Reason             string             `yaml:"reason"`
	Severity           string             `yaml:"severity"`
	LegalReference     string             `yaml:"legal_reference"`
	Scope              string             `yaml:"scope"`
	TriggerKeywords    []string           `yaml:"trigger_keywords"`
	NotTriggerKeywords []string           `yaml:"not_trigger_keywords"`
	EvaluationHint     string             `yaml:"evaluation_hint"`
	Logic              string             `yaml:"condition_logic"`
	Conditions         []conditionYAML    `yaml:"conditions"`
	Value              any                `yaml:"value"`
	Label              string             `yaml:"label"`
	Reasoning          string             `yaml:"reasoning"`
	Confidence         float64            `yaml:"confidence"`
	Weights            map[string]float64 `yaml:"weights"`
}

type conditionYAML struct {
	Dimension string `yaml:"dimension"`
	Operator  string `yaml:"operator"`
	Value     any    `yaml:"value"`
}

// Load reads every *.yaml and *.yml file under dir into a validated
// registry. Files load in name order, so listings are deterministic.
// Any invalid scheme fails the whole load.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schemes directory: %w", err)
	}

	reg := NewRegistry()
	for _, entry := range entries {
		if entry.IsDir() || !isSchemeFile(entry.Name()) {
			continue
		}
		s, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := reg.Register(s); err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
	}
	if err := reg.validateGraph(); err != nil {
		return nil, err
	}
	return reg, nil
}

func isSchemeFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// LoadFile reads and validates a single scheme file.
func LoadFile(path string) (*Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scheme file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// Parse decodes one scheme document. The document is checked against the
// meta schema first so shape mistakes surface as field paths, then
// decoded strictly and validated semantically.
func Parse(data []byte) (*Scheme, error) {
	if err := checkMetaSchema(data); err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var raw schemeYAML
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scheme document")
		}
		return nil, fmt.Errorf("decoding scheme: %w", err)
	}

	s, err := convertScheme(&raw)
	if err != nil {
		return nil, err
	}
	if err := validateScheme(s); err != nil {
		return nil, err
	}
	return s, nil
}

func checkMetaSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(metaSchemaJSON)
	docLoader := gojsonschema.NewGoLoader(jsonValue(doc))

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			errs[i] = e.String()
		}
		return fmt.Errorf("invalid scheme: %v", errs)
	}
	return nil
}

// jsonValue rewrites the yaml.v3 generic representation into the
// JSON-compatible form gojsonschema expects: all map keys as strings.
func jsonValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[k] = jsonValue(val)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = jsonValue(val)
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = jsonValue(val)
		}
		return out
	default:
		return v
	}
}

func convertScheme(raw *schemeYAML) (*Scheme, error) {
	kind, err := ParseKind(raw.Kind)
	if err != nil {
		return nil, err
	}

	s := &Scheme{
		ID:           raw.ID,
		Name:         raw.Name,
		Description:  raw.Description,
		Version:      raw.Version,
		Dimension:    raw.Dimension,
		Kind:         kind,
		Criteria:     raw.Criteria,
		Labels:       raw.Labels,
		Dependencies: raw.Dependencies,
		OutputRange: OutputRange{
			Type:   ValueType(raw.OutputRange.Type),
			Min:    raw.OutputRange.Min,
			Max:    raw.OutputRange.Max,
			Values: raw.OutputRange.Values,
		},
	}
	if s.Version == "" {
		s.Version = "1.0"
	}
	if raw.Default != nil {
		s.Default = &DefaultResult{
			Value:      normalizeValue(raw.Default.Value),
			Label:      raw.Default.Label,
			Reasoning:  raw.Default.Reasoning,
			Confidence: raw.Default.Confidence,
		}
	}

	switch kind {
	case KindOrdinal:
		s.Spec, err = convertOrdinal(raw)
	case KindChecklist:
		s.Spec, err = convertChecklist(raw)
	case KindGate:
		s.Spec, err = convertGate(raw)
	case KindDerived:
		s.Spec, err = convertDerived(raw)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func convertOrdinal(raw *schemeYAML) (*Ordinal, error) {
	strategy, err := ParseSelectionStrategy(raw.Strategy)
	if err != nil {
		return nil, err
	}

	anchors := make([]Anchor, len(raw.Anchors))
	for i, a := range raw.Anchors {
		if a.Label == "" {
			return nil, fmt.Errorf("anchors[%d].label is required", i)
		}
		anchors[i] = Anchor{Value: a.Value, Label: a.Label, Criteria: a.Criteria}
	}
	return &Ordinal{Strategy: strategy, Anchors: anchors}, nil
}

func convertChecklist(raw *schemeYAML) (*Checklist, error) {
	items := make([]ChecklistItem, len(raw.Items))
	for i, it := range raw.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("items[%d].id is required", i)
		}
		if it.Prompt == "" {
			return nil, fmt.Errorf("items[%d].prompt is required", i)
		}
		item := ChecklistItem{
			ID:      it.ID,
			Prompt:  it.Prompt,
			Weight:  it.Weight,
			AllowNA: it.AllowNA,
			Values:  make(map[string]LevelValue, len(it.Values)),
		}
		for level, lv := range it.Values {
			// A "na: null" entry marks the item as skippable; it carries
			// no score.
			if level == "na" && lv == nil {
				item.AllowNA = true
				continue
			}
			if lv == nil {
				return nil, fmt.Errorf("items[%d].values[%s] must be a number or a score object", i, level)
			}
			item.Values[level] = LevelValue{Score: lv.Score, Description: lv.Description}
		}
		items[i] = item
	}

	agg := Aggregator{
		Strategy:    AggregateWeightedMean,
		Missing:     MissingIgnore,
		ScaleFactor: 1.0,
	}
	if raw.Aggregator != nil {
		if raw.Aggregator.Strategy != "" && raw.Aggregator.Strategy != string(AggregateWeightedMean) {
			return nil, fmt.Errorf("unknown aggregation strategy %q", raw.Aggregator.Strategy)
		}
		missing, err := ParseMissingStrategy(raw.Aggregator.Missing)
		if err != nil {
			return nil, err
		}
		agg.Missing = missing
		if raw.Aggregator.ScaleFactor != 0 {
			agg.ScaleFactor = raw.Aggregator.ScaleFactor
		}
	}
	return &Checklist{Items: items, Aggregator: agg}, nil
}

func convertGate(raw *schemeYAML) (*Gate, error) {
	rules := make([]GateRule, len(raw.Rules))
	for i, r := range raw.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rules[%d].id is required", i)
		}
		action := ActionReject
		if r.Action != "" {
			var err error
			action, err = ParseGateAction(r.Action)
			if err != nil {
				return nil, fmt.Errorf("rules[%d]: %w", i, err)
			}
		}
		scope, err := ParseScope(r.Scope)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		confidence := r.Confidence
		if confidence == 0 {
			confidence = 0.9
		}
		rules[i] = GateRule{
			ID:                 r.ID,
			Description:        r.Description,
			Action:             action,
			Reason:             r.Reason,
			Severity:           r.Severity,
			LegalReference:     r.LegalReference,
			Scope:              scope,
			TriggerKeywords:    r.TriggerKeywords,
			NotTriggerKeywords: r.NotTriggerKeywords,
			EvaluationHint:     r.EvaluationHint,
			Confidence:         confidence,
		}
	}

	defaultAction := ActionPass
	if raw.DefaultAction != "" {
		var err error
		defaultAction, err = ParseGateAction(raw.DefaultAction)
		if err != nil {
			return nil, err
		}
	}
	logic, err := ParseGateLogic(raw.GateLogic)
	if err != nil {
		return nil, err
	}
	return &Gate{Rules: rules, DefaultAction: defaultAction, Logic: logic}, nil
}

func convertDerived(raw *schemeYAML) (*Derived, error) {
	rules := make([]DerivedRule, len(raw.Rules))
	for i, r := range raw.Rules {
		logic, err := ParseConditionLogic(r.Logic)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		value, err := convertRuleValue(r.Value)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}

		conds := make([]Condition, len(r.Conditions))
		for j, c := range r.Conditions {
			if c.Dimension == "" {
				return nil, fmt.Errorf("rules[%d].conditions[%d].dimension is required", i, j)
			}
			op, err := ParseOperator(c.Operator)
			if err != nil {
				return nil, fmt.Errorf("rules[%d].conditions[%d]: %w", i, j, err)
			}
			conds[j] = Condition{
				Dimension: c.Dimension,
				Operator:  op,
				Value:     normalizeValue(c.Value),
			}
		}

		confidence := r.Confidence
		if confidence == 0 {
			confidence = 0.9
		}
		rules[i] = DerivedRule{
			Logic:      logic,
			Conditions: conds,
			Value:      value,
			Label:      r.Label,
			Reasoning:  r.Reasoning,
			Confidence: confidence,
			Weights:    r.Weights,
		}
	}
	return &Derived{Rules: rules}, nil
}

func convertRuleValue(v any) (RuleValue, error) {
	switch x := v.(type) {
	case int:
		f := float64(x)
		return RuleValue{Literal: &f}, nil
	case float64:
		return RuleValue{Literal: &x}, nil
	case string:
		method, err := ParseCombineMethod(x)
		if err != nil {
			return RuleValue{}, err
		}
		return RuleValue{Method: method}, nil
	case nil:
		return RuleValue{}, errors.New("value is required")
	default:
		return RuleValue{}, fmt.Errorf("value must be a number or a combination method, got %T", v)
	}
}

// normalizeValue widens YAML integers to float64 so later comparisons
// work on a single numeric type.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
