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
	"regexp"
	"sync"
)

// ErrNotFound is returned when a scheme id is not registered.
var ErrNotFound = errors.New("scheme not found")

// partPattern matches ids of partial schemes. Parts are internal
// building blocks of composite schemes and stay out of listings unless
// explicitly requested.
var partPattern = regexp.MustCompile(`_part[0-9]+$`)

// IsPart reports whether id names a partial scheme.
func IsPart(id string) bool {
	return partPattern.MatchString(id)
}

// Registry holds all loaded schemes keyed by id. Registration happens
// once at startup; afterwards the registry is read-only and safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	schemes map[string]*Scheme
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemes: make(map[string]*Scheme)}
}

// Register adds a scheme. A duplicate id is an error.
func (r *Registry) Register(s *Scheme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemes[s.ID]; exists {
		return fmt.Errorf("scheme %q already registered", s.ID)
	}
	r.schemes[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

// Get returns the scheme with the given id, or ErrNotFound.
func (r *Registry) Get(id string) (*Scheme, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemes[id]
	return ok
}

// Len returns the number of registered schemes, parts included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemes)
}

// ListFilter narrows List output. The zero value lists every scheme
// except parts.
type ListFilter struct {
	// Kind keeps only schemes of one kind when set.
	Kind Kind
	// IncludeParts also lists partial schemes.
	IncludeParts bool
	// ContextType keeps only schemes that carry at least one gate rule
	// active under the given context, directly or through a dependency.
	// Empty means no context filtering.
	ContextType Scope
}

// List returns schemes in registration order, which follows file name
// order on disk.
func (r *Registry) List(filter ListFilter) []*Scheme {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Scheme, 0, len(r.order))
	for _, id := range r.order {
		s := r.schemes[id]
		if !filter.IncludeParts && IsPart(s.ID) {
			continue
		}
		if filter.Kind != "" && s.Kind != filter.Kind {
			continue
		}
		if filter.ContextType != "" && !r.inScopeLocked(s, filter.ContextType, make(map[string]bool)) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// inScopeLocked walks s and its dependencies looking for a gate rule
// whose scope matches the requested context.
func (r *Registry) inScopeLocked(s *Scheme, requested Scope, seen map[string]bool) bool {
	if seen[s.ID] {
		return false
	}
	seen[s.ID] = true

	if gate, ok := s.Spec.(*Gate); ok {
		for _, rule := range gate.Rules {
			if rule.Scope.Matches(requested) {
				return true
			}
		}
	}
	for _, dep := range s.Dependencies {
		if ds, ok := r.schemes[dep]; ok && r.inScopeLocked(ds, requested, seen) {
			return true
		}
	}
	return false
}
