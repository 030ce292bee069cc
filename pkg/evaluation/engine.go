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
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/rubric/pkg/judge"
	"github.com/teradata-labs/rubric/pkg/schema"
)

// DefaultMaxTokens caps a single judge response.
const DefaultMaxTokens = 2048

// Judge temperatures per scheme kind. Gates and checklists want maximal
// determinism; ordinal scoring tolerates a little more.
const (
	ordinalTemperature   = 0.2
	checklistTemperature = 0.1
	gateTemperature      = 0.1
)

// Config configures an Engine.
type Config struct {
	Registry *schema.Registry
	Judge    judge.Judge
	Logger   *zap.Logger

	// MaxTokens caps each judge response. Zero means DefaultMaxTokens.
	MaxTokens int
}

// Engine evaluates schemes against texts. It walks scheme dependencies
// concurrently, memoizes per request, and never lets one failed scheme
// abort its siblings. Safe for concurrent use.
type Engine struct {
	registry  *schema.Registry
	judge     judge.Judge
	logger    *zap.Logger
	maxTokens int
}

// NewEngine builds an engine. Registry and Judge are required.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Engine{
		registry:  cfg.Registry,
		judge:     cfg.Judge,
		logger:    logger,
		maxTokens: maxTokens,
	}
}

// Model returns the judge model identifier, for response metadata.
func (e *Engine) Model() string { return e.judge.Model() }

// Request is one evaluation of a text against a set of schemes.
type Request struct {
	Text      string
	SchemeIDs []string

	// Context selects which gate rules apply; empty means content.
	Context schema.Scope

	// IncludeReasoning keeps judge reasoning and per-item criteria in
	// the results.
	IncludeReasoning bool
}

// Evaluate runs every requested scheme concurrently and assembles the
// report. Results keep request order. Failures never propagate across
// schemes: a failed entry settles on its fallback result and is listed
// in the report's FailedSchemes.
func (e *Engine) Evaluate(ctx context.Context, req Request) *Report {
	scope := req.Context
	if scope == "" {
		scope = schema.ScopeContent
	}

	start := time.Now()
	cache := newRequestCache()
	results := make([]*Result, len(req.SchemeIDs))
	var wg sync.WaitGroup
	for i, id := range req.SchemeIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = e.evaluateScheme(ctx, req.Text, id, scope, cache)
		}(i, id)
	}
	wg.Wait()

	report := e.assemble(results, req.IncludeReasoning)
	e.logger.Info("Evaluation finished",
		zap.Int("schemes", len(req.SchemeIDs)),
		zap.Int("failed", len(report.FailedSchemes)),
		zap.Bool("gates_passed", report.GatesPassed),
		zap.Duration("elapsed", time.Since(start)))
	return report
}

// evaluateScheme resolves one scheme id through the request cache, so a
// scheme shared by several dependents is judged exactly once.
func (e *Engine) evaluateScheme(ctx context.Context, text, id string, scope schema.Scope, cache *requestCache) *Result {
	s, err := e.registry.Get(id)
	if err != nil {
		e.logger.Warn("Unknown scheme requested", zap.String("scheme", id))
		return &Result{
			SchemeID:   id,
			Value:      0.0,
			Label:      labelUnscored,
			Confidence: 0,
			Reasoning:  reasonFallback,
			NAReason:   err.Error(),
		}
	}

	r := cache.do(ctx, id, func() *Result {
		return e.evaluateKind(ctx, text, s, scope, cache)
	})
	if r == nil {
		// The context ended while another caller's evaluation of this
		// scheme was still in flight.
		return e.fallback(s, ctx.Err())
	}
	return r
}

func (e *Engine) evaluateKind(ctx context.Context, text string, s *schema.Scheme, scope schema.Scope, cache *requestCache) *Result {
	start := time.Now()

	var r *Result
	var err error
	switch spec := s.Spec.(type) {
	case *schema.Ordinal:
		r, err = e.evalOrdinal(ctx, text, s, spec)
	case *schema.Checklist:
		r, err = e.evalChecklist(ctx, text, s, spec)
	case *schema.Gate:
		r, err = e.evalGate(ctx, text, s, spec, scope)
	case *schema.Derived:
		r, err = e.evalDerived(ctx, text, s, spec, scope, cache)
	default:
		err = fmt.Errorf("scheme %q has no kind payload", s.ID)
	}
	if err != nil {
		e.logger.Warn("Scheme evaluation failed",
			zap.String("scheme", s.ID),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return e.fallback(s, err)
	}

	e.logger.Debug("Scheme evaluated",
		zap.String("scheme", s.ID),
		zap.Any("value", r.Value),
		zap.Duration("elapsed", time.Since(start)))
	return r
}

// callJudge sends one prompt pair to the model. The estimated token
// count is logged so oversized prompts are visible before they fail.
func (e *Engine) callJudge(ctx context.Context, s *schema.Scheme, userPrompt string, temperature float64) (string, error) {
	tokens := judge.GetTokenCounter().CountTokensMultiple(systemPrompt, userPrompt)
	e.logger.Debug("Sending judge prompt",
		zap.String("scheme", s.ID),
		zap.Int("estimated_tokens", tokens))
	if tokens > promptTokenWarnLimit {
		e.logger.Warn("Prompt may exceed the model context",
			zap.String("scheme", s.ID),
			zap.Int("estimated_tokens", tokens))
	}
	return e.judge.Judge(ctx, systemPrompt, userPrompt, temperature, e.maxTokens)
}

func (e *Engine) evalOrdinal(ctx context.Context, text string, s *schema.Scheme, spec *schema.Ordinal) (*Result, error) {
	response, err := e.callJudge(ctx, s, buildOrdinalPrompt(text, s, spec), ordinalTemperature)
	if err != nil {
		return nil, err
	}
	verdict, err := parseOrdinalVerdict(response)
	if err != nil {
		return nil, err
	}

	anchor := nearestAnchor(spec, verdict.Value)
	if anchor.Value != verdict.Value {
		e.logger.Warn("Judged level is not a defined anchor",
			zap.String("scheme", s.ID),
			zap.Int("judged", verdict.Value),
			zap.Int("anchor", anchor.Value))
	}
	value := typedValue(s, float64(anchor.Value))
	label := resolveLabel(s, value, anchor.Label)

	return &Result{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      label,
		Confidence: verdict.Confidence,
		Reasoning:  buildOrdinalReasoning(anchor.Value, label, verdict.Reasoning),
		ScaleInfo:  ordinalScaleInfo(s, spec),
	}, nil
}

func (e *Engine) evalChecklist(ctx context.Context, text string, s *schema.Scheme, spec *schema.Checklist) (*Result, error) {
	response, err := e.callJudge(ctx, s, buildChecklistPrompt(text, s, spec), checklistTemperature)
	if err != nil {
		return nil, err
	}
	verdicts, err := parseChecklistVerdict(response)
	if err != nil {
		return nil, err
	}
	agg, err := aggregateChecklist(spec, verdicts)
	if err != nil {
		return nil, err
	}

	value := typedValue(s, agg.Value)
	return &Result{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      resolveLabel(s, value, ""),
		Confidence: round2(agg.Confidence),
		Reasoning:  buildChecklistReasoning(s, spec, agg),
		Criteria:   agg.Criteria,
		ScaleInfo:  checklistScaleInfo(s),
	}, nil
}

func (e *Engine) evalGate(ctx context.Context, text string, s *schema.Scheme, spec *schema.Gate, scope schema.Scope) (*Result, error) {
	rules := scopedRules(spec, scope)
	if len(rules) == 0 {
		// Nothing to check in this context; the default decides without
		// a model call.
		passed := spec.DefaultAction != schema.ActionReject
		e.logger.Debug("No gate rules in scope",
			zap.String("scheme", s.ID),
			zap.String("context", string(scope)))
		return &Result{
			SchemeID:   s.ID,
			Dimension:  s.Dimension,
			Value:      passed,
			Label:      gateLabel(s, passed),
			Confidence: 1.0,
			Reasoning:  buildGateReasoning(passed, "Keine Regel ist im angeforderten Kontext anwendbar."),
			ScaleInfo:  gateScaleInfo(0),
		}, nil
	}

	response, err := e.callJudge(ctx, s, buildGatePrompt(text, s, rules), gateTemperature)
	if err != nil {
		return nil, err
	}
	verdicts, err := parseGateVerdict(response)
	if err != nil {
		return nil, err
	}

	// Rules walk in declaration order; the first triggered reject rule
	// decides, regardless of later rules.
	criteria := make(map[string]any, len(rules))
	var failing *schema.GateRule
	var failReasoning string
	passExplicit := false
	for i := range rules {
		rule := &rules[i]
		v, answered := verdicts[rule.ID]
		triggered := answered && v.Triggered
		criteria[rule.ID] = &RuleDetail{
			Triggered: triggered,
			Passed:    !(triggered && rule.Action == schema.ActionReject),
			Rule:      rule.Description,
			Severity:  rule.Severity,
			Reasoning: v.Reasoning,
		}
		if !triggered {
			continue
		}
		if rule.Action == schema.ActionReject && failing == nil {
			failing = rule
			failReasoning = v.Reasoning
		}
		if rule.Action == schema.ActionPass {
			passExplicit = true
		}
	}

	passed := spec.DefaultAction != schema.ActionReject
	confidence := 0.9
	main := "Keine der geprüften Regeln ist ausgelöst."
	severity, legalReference := "", ""
	switch {
	case failing != nil:
		passed = false
		confidence = failing.Confidence
		severity = failing.Severity
		legalReference = failing.LegalReference
		main = failing.Reason
		if failReasoning != "" {
			if main != "" {
				main += " – " + failReasoning
			} else {
				main = failReasoning
			}
		}
	case spec.Logic == schema.GateOr && passExplicit:
		passed = true
		main = "Mindestens eine Freigaberegel trifft zu."
	case !passed:
		main = "Keine Freigaberegel trifft zu."
	}

	return &Result{
		SchemeID:       s.ID,
		Dimension:      s.Dimension,
		Value:          passed,
		Label:          gateLabel(s, passed),
		Confidence:     confidence,
		Reasoning:      buildGateReasoning(passed, main),
		Criteria:       criteria,
		ScaleInfo:      gateScaleInfo(len(rules)),
		Severity:       severity,
		LegalReference: legalReference,
	}, nil
}

func (e *Engine) evalDerived(ctx context.Context, text string, s *schema.Scheme, spec *schema.Derived, scope schema.Scope, cache *requestCache) (*Result, error) {
	// Dependencies evaluate concurrently; shared ones resolve through
	// the cache. A failed dependency enters the rules as its fallback.
	deps := make([]*Result, len(s.Dependencies))
	var wg sync.WaitGroup
	for i, depID := range s.Dependencies {
		wg.Add(1)
		go func(i int, depID string) {
			defer wg.Done()
			deps[i] = e.evaluateScheme(ctx, text, depID, scope, cache)
		}(i, depID)
	}
	wg.Wait()

	byDim := resultsByDimension(deps)
	for _, rule := range spec.Rules {
		if !matchRule(rule, byDim) {
			continue
		}
		r, err := e.applyDerivedRule(s, rule, deps)
		if err != nil {
			e.logger.Warn("Derived rule not computable",
				zap.String("scheme", s.ID),
				zap.Error(err))
			return e.defaultResult(s, "Keine Kombinationsregel berechenbar."), nil
		}
		return r, nil
	}

	e.logger.Warn("No derived rule matched", zap.String("scheme", s.ID))
	return e.defaultResult(s, "Keine Kombinationsregel trifft zu."), nil
}

func (e *Engine) applyDerivedRule(s *schema.Scheme, rule schema.DerivedRule, deps []*Result) (*Result, error) {
	var value any
	method := "rule_based"
	if rule.Value.IsLiteral() {
		value = typedValue(s, *rule.Value.Literal)
	} else {
		method = string(rule.Value.Method)
		raw, err := combineValue(rule.Value.Method, rule, deps)
		if err != nil {
			return nil, err
		}
		switch x := raw.(type) {
		case bool:
			value = x
		case float64:
			value = typedValue(s, x)
		}
	}

	label := resolveLabel(s, value, rule.Label)
	reasoning := rule.Reasoning
	if reasoning == "" {
		switch rule.Value.Method {
		case schema.CombineWeightedAverage:
			n, _ := toNumber(value)
			reasoning = buildAverageReasoning(n, deps, rule.Weights)
		case schema.CombineAndGate, schema.CombineOrGate:
			reasoning = buildComplianceReasoning(label, deps)
		default:
			reasoning = fmt.Sprintf("**Ergebnis:** %s", formatValue(value))
			if label != "" {
				reasoning += " – " + label
			}
		}
	}

	criteria := make(map[string]any, len(deps))
	for _, d := range deps {
		criteria[d.SchemeID] = &DependencyDetail{
			Result: d,
			Weight: rule.Weights[d.Dimension],
		}
	}

	return &Result{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Value:      value,
		Label:      label,
		Confidence: rule.Confidence,
		Reasoning:  reasoning,
		Criteria:   criteria,
		ScaleInfo:  derivedScaleInfo(method, len(deps), rule.Weights),
	}, nil
}

// defaultResult builds the scheme's fallback result: the declared
// default when present, otherwise zero/false with the unscored label.
func (e *Engine) defaultResult(s *schema.Scheme, reasoning string) *Result {
	r := &Result{
		SchemeID:   s.ID,
		Dimension:  s.Dimension,
		Label:      labelUnscored,
		Confidence: 0,
		Reasoning:  reasoning,
	}
	if s.OutputRange.Type == schema.ValueBoolean {
		r.Value = false
	} else if s.OutputRange.Type == schema.ValueInt {
		r.Value = 0
	} else {
		r.Value = 0.0
	}

	if d := s.Default; d != nil {
		if d.Value != nil {
			r.Value = coerceDefaultValue(s, d.Value)
		}
		if d.Label != "" {
			r.Label = d.Label
		}
		if d.Reasoning != "" {
			r.Reasoning = d.Reasoning
		}
		r.Confidence = d.Confidence
	}
	return r
}

func coerceDefaultValue(s *schema.Scheme, v any) any {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		if s.OutputRange.Type == schema.ValueInt {
			return int(x)
		}
		return x
	default:
		return v
	}
}

// fallback is the errored variant of defaultResult; the cause lands in
// NAReason and flags the scheme as failed in the report.
func (e *Engine) fallback(s *schema.Scheme, cause error) *Result {
	r := e.defaultResult(s, reasonFallback)
	if cause != nil {
		r.NAReason = cause.Error()
	} else {
		r.NAReason = "evaluation aborted"
	}
	return r
}

func (e *Engine) assemble(results []*Result, includeReasoning bool) *Report {
	report := &Report{
		Results:     results,
		GatesPassed: true,
		ModelUsed:   e.judge.Model(),
	}

	var sum float64
	var numeric int
	for _, r := range results {
		if r.Failed() {
			report.FailedSchemes = append(report.FailedSchemes, r.SchemeID)
		}
		if e.isGate(r.SchemeID) {
			if passed, ok := r.Value.(bool); ok {
				report.GatesPassed = report.GatesPassed && passed
			}
			continue
		}
		if n, ok := numericValue(r.Value); ok {
			if numeric == 0 {
				report.OverallLabel = r.Label
			}
			sum += n
			numeric++
		}
	}
	if numeric > 0 {
		avg := round2(sum / float64(numeric))
		report.OverallScore = &avg
	}

	if !includeReasoning {
		for i, r := range results {
			results[i] = r.WithoutReasoning()
		}
	}
	return report
}

func (e *Engine) isGate(id string) bool {
	s, err := e.registry.Get(id)
	return err == nil && s.Kind == schema.KindGate
}

// numericValue reports ints and floats; booleans stay out of averages.
func numericValue(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}
