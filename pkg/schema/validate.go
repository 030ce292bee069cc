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
	"errors"
	"fmt"
	"strings"
)

// validateScheme checks the invariants of a single converted scheme.
func validateScheme(s *Scheme) error {
	switch s.OutputRange.Type {
	case ValueInt, ValueFloat:
		if len(s.OutputRange.Values) == 0 && s.OutputRange.Min > s.OutputRange.Max {
			return fmt.Errorf("output_range: min %v greater than max %v", s.OutputRange.Min, s.OutputRange.Max)
		}
	case ValueBoolean:
		if len(s.OutputRange.Values) > 0 {
			return errors.New("output_range: boolean ranges cannot enumerate values")
		}
	default:
		return fmt.Errorf("output_range: unknown type %q", s.OutputRange.Type)
	}

	switch spec := s.Spec.(type) {
	case *Ordinal:
		return validateOrdinal(s, spec)
	case *Checklist:
		return validateChecklist(spec)
	case *Gate:
		return validateGate(s, spec)
	case *Derived:
		return validateDerived(spec)
	default:
		return fmt.Errorf("scheme %q has no kind payload", s.ID)
	}
}

func validateOrdinal(s *Scheme, spec *Ordinal) error {
	if len(spec.Anchors) == 0 {
		return errors.New("ordinal scheme needs at least one anchor")
	}
	for i, a := range spec.Anchors {
		if i > 0 && a.Value >= spec.Anchors[i-1].Value {
			return fmt.Errorf("anchors[%d]: values must be strictly descending", i)
		}
		if !s.OutputRange.Contains(a.Value) {
			return fmt.Errorf("anchors[%d]: value %d outside output range", i, a.Value)
		}
	}
	return nil
}

func validateChecklist(spec *Checklist) error {
	if len(spec.Items) == 0 {
		return errors.New("checklist scheme needs at least one item")
	}
	seen := make(map[string]bool, len(spec.Items))
	for i, item := range spec.Items {
		if seen[item.ID] {
			return fmt.Errorf("items[%d]: duplicate item id %q", i, item.ID)
		}
		seen[item.ID] = true
		if item.Weight <= 0 {
			return fmt.Errorf("items[%d]: weight must be positive", i)
		}
		if len(item.Values) == 0 {
			return fmt.Errorf("items[%d]: values must define at least one level", i)
		}
		for level, v := range item.Values {
			if v.Score < 0 || v.Score > 1 {
				return fmt.Errorf("items[%d].values[%s]: score %v outside [0,1]", i, level, v.Score)
			}
		}
	}
	if spec.Aggregator.ScaleFactor <= 0 {
		return errors.New("aggregator.scale_factor must be positive")
	}
	return nil
}

func validateGate(s *Scheme, spec *Gate) error {
	if len(spec.Rules) == 0 {
		return errors.New("gate scheme needs at least one rule")
	}
	if s.OutputRange.Type != ValueBoolean {
		return errors.New("gate schemes must declare a boolean output range")
	}
	seen := make(map[string]bool, len(spec.Rules))
	for i, rule := range spec.Rules {
		if seen[rule.ID] {
			return fmt.Errorf("rules[%d]: duplicate rule id %q", i, rule.ID)
		}
		seen[rule.ID] = true
	}
	return nil
}

func validateDerived(spec *Derived) error {
	if len(spec.Rules) == 0 {
		return errors.New("derived scheme needs at least one rule")
	}
	for i, rule := range spec.Rules {
		for dim, w := range rule.Weights {
			if w < 0 {
				return fmt.Errorf("rules[%d].weights[%s]: weight must not be negative", i, dim)
			}
		}
	}
	return nil
}

// validateGraph checks cross-scheme invariants after every file loaded:
// dependencies resolve, the dependency graph is acyclic, and derived
// rules only reference dimensions their dependencies produce.
func (r *Registry) validateGraph() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		for _, dep := range r.schemes[id].Dependencies {
			if _, ok := r.schemes[dep]; !ok {
				return fmt.Errorf("scheme %q depends on unknown scheme %q", id, dep)
			}
		}
	}
	if err := r.checkAcyclicLocked(); err != nil {
		return err
	}

	for _, id := range r.order {
		s := r.schemes[id]
		derived, ok := s.Spec.(*Derived)
		if !ok {
			continue
		}
		dims := r.reachableDimensionsLocked(s)
		for i, rule := range derived.Rules {
			for j, cond := range rule.Conditions {
				if !dims[cond.Dimension] {
					return fmt.Errorf("scheme %q: rules[%d].conditions[%d] references dimension %q not produced by any dependency",
						id, i, j, cond.Dimension)
				}
			}
			for dim := range rule.Weights {
				if !dims[dim] {
					return fmt.Errorf("scheme %q: rules[%d].weights references dimension %q not produced by any dependency",
						id, i, dim)
				}
			}
		}
	}
	return nil
}

func (r *Registry) checkAcyclicLocked() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(r.schemes))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("dependency cycle: %s", strings.Join(append(path, id), " -> "))
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range r.schemes[id].Dependencies {
			if _, ok := r.schemes[dep]; !ok {
				continue
			}
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range r.order {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// reachableDimensionsLocked collects the dimensions of every scheme
// reachable from s through dependencies, excluding s itself.
func (r *Registry) reachableDimensionsLocked(s *Scheme) map[string]bool {
	dims := make(map[string]bool)
	seen := map[string]bool{s.ID: true}
	queue := append([]string(nil), s.Dependencies...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		dep, ok := r.schemes[id]
		if !ok {
			continue
		}
		dims[dep.Dimension] = true
		queue = append(queue, dep.Dependencies...)
	}
	return dims
}
