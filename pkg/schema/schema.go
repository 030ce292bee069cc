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

// Package schema defines evaluation schemes and loads them from YAML files.
//
// A scheme describes how one quality dimension of a text is scored: either
// by a judge model against anchored levels (ordinal), against a weighted
// item list (checklist), against hard reject rules (binary gate), or by
// combining the results of other schemes (derived). Schemes are immutable
// once loaded; the registry hands out shared pointers.
package schema

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the four scheme variants.
type Kind string

const (
	KindOrdinal   Kind = "ordinal_rubric"
	KindChecklist Kind = "checklist_additive"
	KindGate      Kind = "binary_gate"
	KindDerived   Kind = "derived"
)

// ParseKind normalizes a kind string from YAML. Short spellings are
// accepted alongside the canonical names.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "ordinal", "ordinal_rubric":
		return KindOrdinal, nil
	case "checklist", "checklist_additive":
		return KindChecklist, nil
	case "binary_gate", "gate":
		return KindGate, nil
	case "derived":
		return KindDerived, nil
	default:
		return "", fmt.Errorf("unknown scheme kind %q", s)
	}
}

// Scope restricts a gate rule to the context it applies in. Evaluation
// requests carry the same values as their context_type.
type Scope string

const (
	ScopeContent  Scope = "content"
	ScopePlatform Scope = "platform"
	ScopeBoth     Scope = "both"
)

// ParseScope parses a scope string. The empty string maps to ScopeBoth,
// which is the default for rules that do not declare one.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "content":
		return ScopeContent, nil
	case "platform":
		return ScopePlatform, nil
	case "both", "":
		return ScopeBoth, nil
	default:
		return "", fmt.Errorf("unknown scope %q", s)
	}
}

// Matches reports whether a rule with scope r is active under the
// requested context. ScopeBoth matches every context, and a request for
// ScopeBoth activates every rule.
func (r Scope) Matches(requested Scope) bool {
	return r == ScopeBoth || requested == ScopeBoth || r == requested
}

// ValueType is the declared type of a scheme's output value.
type ValueType string

const (
	ValueInt     ValueType = "int"
	ValueFloat   ValueType = "float"
	ValueBoolean ValueType = "boolean"
)

// OutputRange bounds the value a scheme may produce. Numeric kinds use
// Min/Max or an enumerated Values set; boolean gates ignore all three.
type OutputRange struct {
	Type   ValueType
	Min    float64
	Max    float64
	Values []float64
}

// Contains reports whether v lies within the range. Booleans are always
// in range for boolean typed schemes and never for numeric ones. When an
// enumerated value set is declared it replaces the Min/Max check.
func (r OutputRange) Contains(v any) bool {
	switch x := v.(type) {
	case bool:
		return r.Type == ValueBoolean
	case int:
		return r.containsNumeric(float64(x))
	case float64:
		return r.containsNumeric(x)
	default:
		return false
	}
}

func (r OutputRange) containsNumeric(x float64) bool {
	if r.Type == ValueBoolean {
		return false
	}
	if len(r.Values) > 0 {
		for _, v := range r.Values {
			if v == x {
				return true
			}
		}
		return false
	}
	return x >= r.Min && x <= r.Max
}

// DefaultResult is the optional per-scheme override for the fallback
// emitted when a judge call fails. Unset fields keep the global fallback.
type DefaultResult struct {
	Value      any
	Label      string
	Reasoning  string
	Confidence float64
}

// Scheme is one loaded evaluation scheme. Common fields live here; the
// kind-specific payload is in Spec and selected by a type switch.
type Scheme struct {
	ID           string
	Name         string
	Description  string
	Version      string
	Dimension    string
	Kind         Kind
	Criteria     string
	OutputRange  OutputRange
	Labels       map[string]string
	Default      *DefaultResult
	Dependencies []string
	Spec         KindSpec
}

// KindSpec is the sealed union of per-kind payloads. Exactly one concrete
// type exists per Kind; the evaluator dispatches with a type switch.
type KindSpec interface {
	kind() Kind
}

// Ordinal asks the judge to pick one anchored level on a discrete scale.
type Ordinal struct {
	Strategy SelectionStrategy
	Anchors  []Anchor
}

func (*Ordinal) kind() Kind { return KindOrdinal }

// SelectionStrategy tells the judge how to pick an anchor: first_match
// walks levels top-down and takes the first whose criteria fully hold,
// best_fit takes the level that fits the text best overall.
type SelectionStrategy string

const (
	StrategyFirstMatch SelectionStrategy = "first_match"
	StrategyBestFit    SelectionStrategy = "best_fit"
)

// ParseSelectionStrategy parses a strategy, defaulting to first_match.
func ParseSelectionStrategy(s string) (SelectionStrategy, error) {
	switch s {
	case "first_match", "":
		return StrategyFirstMatch, nil
	case "best_fit":
		return StrategyBestFit, nil
	default:
		return "", fmt.Errorf("unknown selection strategy %q", s)
	}
}

// Anchor is one selectable level of an ordinal scheme. Anchors are kept
// in descending value order.
type Anchor struct {
	Value    int
	Label    string
	Criteria string
}

// Checklist scores a weighted list of yes/no/graded items in a single
// judge call and aggregates them into one value.
type Checklist struct {
	Items      []ChecklistItem
	Aggregator Aggregator
}

func (*Checklist) kind() Kind { return KindChecklist }

// ChecklistItem is one question the judge answers with a level key from
// Values, or with "na" when AllowNA is set. Scores are normalized to
// [0,1]; a "na" entry in the YAML values map enables AllowNA.
type ChecklistItem struct {
	ID      string
	Prompt  string
	Weight  float64
	Values  map[string]LevelValue
	AllowNA bool
}

// LevelValue is one selectable level of a checklist item: its normalized
// score and an optional description shown to the judge.
type LevelValue struct {
	Score       float64
	Description string
}

// Score returns the normalized score for a judged integer level.
func (i ChecklistItem) Score(level int) (float64, bool) {
	v, ok := i.Values[strconv.Itoa(level)]
	return v.Score, ok
}

// Levels returns the item's integer levels in ascending order. Non-integer
// keys ("na") are skipped.
func (i ChecklistItem) Levels() []int {
	levels := make([]int, 0, len(i.Values))
	for k := range i.Values {
		if n, err := strconv.Atoi(k); err == nil {
			levels = append(levels, n)
		}
	}
	sort.Ints(levels)
	return levels
}

// MissingStrategy decides how unanswered or "na" checklist items enter
// the aggregate.
type MissingStrategy string

const (
	MissingIgnore MissingStrategy = "ignore"
	MissingZero   MissingStrategy = "zero"
)

// ParseMissingStrategy parses a missing strategy, defaulting to ignore.
func ParseMissingStrategy(s string) (MissingStrategy, error) {
	switch s {
	case "ignore", "":
		return MissingIgnore, nil
	case "zero":
		return MissingZero, nil
	default:
		return "", fmt.Errorf("unknown missing strategy %q", s)
	}
}

// Aggregator folds judged checklist items into the scheme value.
type Aggregator struct {
	Strategy    AggregationStrategy
	Missing     MissingStrategy
	ScaleFactor float64
}

// AggregationStrategy names the checklist fold. Only the weighted mean
// is defined.
type AggregationStrategy string

const AggregateWeightedMean AggregationStrategy = "weighted_mean"

// Gate evaluates hard reject rules. The first triggered rule in
// declaration order whose action is reject decides the outcome.
type Gate struct {
	Rules         []GateRule
	DefaultAction GateAction
	Logic         GateLogic
}

func (*Gate) kind() Kind { return KindGate }

// GateRule is one reject condition the judge checks independently.
// Confidence is attached to the result when the rule decides the gate.
type GateRule struct {
	ID                 string
	Description        string
	Action             GateAction
	Reason             string
	Severity           string
	LegalReference     string
	Scope              Scope
	TriggerKeywords    []string
	NotTriggerKeywords []string
	EvaluationHint     string
	Confidence         float64
}

// GateAction is what a triggered rule does to the verdict.
type GateAction string

const (
	ActionReject GateAction = "reject"
	ActionPass   GateAction = "pass"
)

// ParseGateAction parses a gate action. Callers apply their own default
// for the empty string: reject for rules, pass for the gate itself.
func ParseGateAction(s string) (GateAction, error) {
	switch s {
	case "reject":
		return ActionReject, nil
	case "pass":
		return ActionPass, nil
	default:
		return "", fmt.Errorf("unknown gate action %q", s)
	}
}

// GateLogic combines rule verdicts when no reject fires.
type GateLogic string

const (
	GateAnd GateLogic = "AND"
	GateOr  GateLogic = "OR"
)

// ParseGateLogic parses gate logic, defaulting to AND.
func ParseGateLogic(s string) (GateLogic, error) {
	switch s {
	case "AND", "and", "":
		return GateAnd, nil
	case "OR", "or":
		return GateOr, nil
	default:
		return "", fmt.Errorf("unknown gate logic %q", s)
	}
}

// Derived combines dependency results without a judge call. Rules are
// checked in declaration order; the first one whose conditions hold
// supplies the value.
type Derived struct {
	Rules []DerivedRule
}

func (*Derived) kind() Kind { return KindDerived }

// ConditionLogic joins the conditions of one derived rule.
type ConditionLogic string

const (
	ConditionAnd ConditionLogic = "AND"
	ConditionOr  ConditionLogic = "OR"
)

// ParseConditionLogic parses condition logic, defaulting to AND.
func ParseConditionLogic(s string) (ConditionLogic, error) {
	switch s {
	case "AND", "and", "":
		return ConditionAnd, nil
	case "OR", "or":
		return ConditionOr, nil
	default:
		return "", fmt.Errorf("unknown condition logic %q", s)
	}
}

// DerivedRule is one guarded combination recipe. An empty Conditions
// list always matches, which makes the last rule a natural catch-all.
type DerivedRule struct {
	Logic      ConditionLogic
	Conditions []Condition
	Value      RuleValue
	Label      string
	Reasoning  string
	Confidence float64
	Weights    map[string]float64
}

// Operator compares a dependency result against a rule condition value.
type Operator string

const (
	OpEq    Operator = "=="
	OpNeq   Operator = "!="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpIn    Operator = "in"
	OpNotIn Operator = "not_in"
)

// ParseOperator parses a condition operator.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn:
		return Operator(s), nil
	default:
		return "", fmt.Errorf("unknown condition operator %q", s)
	}
}

// Condition is one comparison against a dependency dimension's value.
// Value holds a number, string, bool, or a list for in/not_in.
type Condition struct {
	Dimension string
	Operator  Operator
	Value     any
}

// CombineMethod names a derived value computed from dependency results.
type CombineMethod string

const (
	CombineWeightedAverage CombineMethod = "weighted_average"
	CombineSum             CombineMethod = "sum"
	CombineMin             CombineMethod = "min"
	CombineMax             CombineMethod = "max"
	CombineAndGate         CombineMethod = "and_gate"
	CombineOrGate          CombineMethod = "or_gate"
)

// ParseCombineMethod parses a combination method keyword.
func ParseCombineMethod(s string) (CombineMethod, error) {
	switch CombineMethod(s) {
	case CombineWeightedAverage, CombineSum, CombineMin, CombineMax, CombineAndGate, CombineOrGate:
		return CombineMethod(s), nil
	default:
		return "", fmt.Errorf("unknown combination method %q", s)
	}
}

// RuleValue is either a literal number or a combination method applied
// to the dependency results. Exactly one side is set.
type RuleValue struct {
	Literal *float64
	Method  CombineMethod
}

// IsLiteral reports whether the rule value is a fixed number.
func (v RuleValue) IsLiteral() bool { return v.Literal != nil }
