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
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/teradata-labs/rubric/pkg/schema"
)

// checklistAggregate is the folded outcome of one checklist verdict.
type checklistAggregate struct {
	// Base is the weighted mean in [0,1] before scaling.
	Base float64
	// Value is Base times the scheme's scale factor.
	Value float64
	// Confidence is the mean of the per-item confidences the judge
	// reported, or 0.8 when it reported none.
	Confidence float64
	// Criteria holds one ItemDetail per item id.
	Criteria map[string]any
}

// aggregateChecklist folds per-item verdicts into one score. Items walk
// in declaration order; unanswered and "na" items follow the scheme's
// missing policy. An error means no item contributed any weight.
func aggregateChecklist(spec *schema.Checklist, verdicts map[string]itemVerdict) (*checklistAggregate, error) {
	var weightedSum, totalWeight float64
	var confidenceSum float64
	var confidenceN int
	criteria := make(map[string]any, len(spec.Items))

	for _, item := range spec.Items {
		detail := &ItemDetail{Name: item.Prompt, Weight: item.Weight}
		criteria[item.ID] = detail

		v, answered := verdicts[item.ID]
		if answered {
			detail.Reasoning = v.Reasoning
			if v.Confidence >= 0 {
				confidenceSum += v.Confidence
				confidenceN++
			}
		}

		switch {
		case !answered:
			detail.Response = "fehlend"
		case v.NA:
			detail.Response = "na"
		default:
			level := nearestLevel(item, v.Level)
			score, _ := item.Score(level)
			detail.Response = "Stufe " + strconv.Itoa(level)
			detail.NormalizedScore = &score
			weightedSum += item.Weight * score
			totalWeight += item.Weight
			continue
		}

		// Missing or "na": the policy decides whether the item weighs in
		// at zero or drops out of the mean.
		if spec.Aggregator.Missing == schema.MissingZero {
			zero := 0.0
			detail.NormalizedScore = &zero
			totalWeight += item.Weight
		}
	}

	if totalWeight == 0 {
		return nil, errors.New("no checklist item contributed a score")
	}

	agg := &checklistAggregate{
		Base:       weightedSum / totalWeight,
		Confidence: 0.8,
		Criteria:   criteria,
	}
	agg.Value = agg.Base * spec.Aggregator.ScaleFactor
	if confidenceN > 0 {
		agg.Confidence = confidenceSum / float64(confidenceN)
	}
	return agg, nil
}

// nearestLevel maps a judged level onto the item's defined levels. Models
// occasionally answer a level the scheme does not define; the closest
// defined one is used, ties going to the lower level.
func nearestLevel(item schema.ChecklistItem, judged int) int {
	if _, ok := item.Score(judged); ok {
		return judged
	}
	levels := item.Levels()
	best := levels[0]
	for _, l := range levels[1:] {
		if abs(l-judged) < abs(best-judged) {
			best = l
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// resultsByDimension indexes dependency results by dimension. When two
// dependencies share a dimension the first in declaration order wins.
func resultsByDimension(deps []*Result) map[string]*Result {
	byDim := make(map[string]*Result, len(deps))
	for _, d := range deps {
		if _, ok := byDim[d.Dimension]; !ok {
			byDim[d.Dimension] = d
		}
	}
	return byDim
}

// matchRule reports whether a derived rule's conditions hold against the
// dependency results. An empty condition list always matches.
func matchRule(rule schema.DerivedRule, byDim map[string]*Result) bool {
	if len(rule.Conditions) == 0 {
		return true
	}
	for _, cond := range rule.Conditions {
		met := evalCondition(cond, byDim)
		if rule.Logic == schema.ConditionOr {
			if met {
				return true
			}
		} else if !met {
			return false
		}
	}
	return rule.Logic != schema.ConditionOr
}

func evalCondition(cond schema.Condition, byDim map[string]*Result) bool {
	dep, ok := byDim[cond.Dimension]
	if !ok {
		return false
	}
	actual := dep.Value

	switch cond.Operator {
	case schema.OpEq:
		return looseEqual(actual, cond.Value)
	case schema.OpNeq:
		return !looseEqual(actual, cond.Value)
	case schema.OpIn:
		return contains(cond.Value, actual)
	case schema.OpNotIn:
		return !contains(cond.Value, actual)
	}

	a, aok := toNumber(actual)
	b, bok := toNumber(cond.Value)
	if !aok || !bok {
		return false
	}
	switch cond.Operator {
	case schema.OpGt:
		return a > b
	case schema.OpGte:
		return a >= b
	case schema.OpLt:
		return a < b
	case schema.OpLte:
		return a <= b
	}
	return false
}

// looseEqual compares result values against condition values. Numbers
// compare numerically across int/float, and booleans equal 1/0 so the
// same condition works against old numeric gates and boolean ones.
func looseEqual(a, b any) bool {
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		return an == bn
	}
	as, aok2 := a.(string)
	bs, bok2 := b.(string)
	return aok2 && bok2 && as == bs
}

func contains(list any, v any) bool {
	entries, ok := list.([]any)
	if !ok {
		return false
	}
	for _, e := range entries {
		if looseEqual(v, e) {
			return true
		}
	}
	return false
}

// toNumber widens a result or condition value to float64. Booleans map
// to 1 and 0.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	n, ok := toNumber(v)
	return ok && n != 0
}

// combineValue computes a derived rule's method over the dependency
// results, walked in the scheme's dependency order.
func combineValue(method schema.CombineMethod, rule schema.DerivedRule, deps []*Result) (any, error) {
	switch method {
	case schema.CombineWeightedAverage:
		var weightedSum, totalWeight float64
		seen := make(map[string]bool, len(deps))
		for _, d := range deps {
			if seen[d.Dimension] {
				continue
			}
			seen[d.Dimension] = true
			w, ok := rule.Weights[d.Dimension]
			if !ok {
				continue
			}
			n, ok := toNumber(d.Value)
			if !ok {
				continue
			}
			weightedSum += n * w
			totalWeight += w
		}
		if totalWeight == 0 {
			return nil, errors.New("no weighted dependency contributed a value")
		}
		return weightedSum / totalWeight, nil

	case schema.CombineSum:
		var sum float64
		for _, d := range deps {
			if n, ok := toNumber(d.Value); ok {
				sum += n
			}
		}
		return sum, nil

	case schema.CombineMin, schema.CombineMax:
		best := math.NaN()
		for _, d := range deps {
			n, ok := toNumber(d.Value)
			if !ok {
				continue
			}
			if math.IsNaN(best) || (method == schema.CombineMin && n < best) || (method == schema.CombineMax && n > best) {
				best = n
			}
		}
		if math.IsNaN(best) {
			return nil, errors.New("no numeric dependency values")
		}
		return best, nil

	case schema.CombineAndGate:
		for _, d := range deps {
			if !truthy(d.Value) {
				return false, nil
			}
		}
		return true, nil

	case schema.CombineOrGate:
		for _, d := range deps {
			if truthy(d.Value) {
				return true, nil
			}
		}
		return false, nil

	default:
		return nil, fmt.Errorf("unknown combination method %q", method)
	}
}
