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
	"fmt"
	"net/http"
	"strconv"

	"github.com/teradata-labs/rubric/pkg/schema"
)

// schemeInfo is one entry of the scheme listing.
type schemeInfo struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	Dimension    string         `json:"dimension"`
	Description  string         `json:"description,omitempty"`
	Version      string         `json:"version,omitempty"`
	OutputRange  map[string]any `json:"output_range"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// handleSchemes lists loaded schemes. Partial schemes are hidden unless
// include_parts=true; context_type keeps only schemes with at least one
// gate rule active under that context.
func (s *Server) handleSchemes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var filter schema.ListFilter
	q := r.URL.Query()
	if v := q.Get("include_parts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid include_parts value %q", v))
			return
		}
		filter.IncludeParts = b
	}
	if v := q.Get("context_type"); v != "" {
		scope, err := schema.ParseScope(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.ContextType = scope
	}

	schemes := s.registry.List(filter)
	out := make([]schemeInfo, 0, len(schemes))
	for _, sc := range schemes {
		out = append(out, newSchemeInfo(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

func newSchemeInfo(s *schema.Scheme) schemeInfo {
	return schemeInfo{
		ID:           s.ID,
		Name:         s.Name,
		Kind:         string(s.Kind),
		Dimension:    s.Dimension,
		Description:  s.Description,
		Version:      s.Version,
		OutputRange:  outputRangeJSON(s.OutputRange),
		Dependencies: s.Dependencies,
	}
}

// outputRangeJSON renders a scheme's output range the way clients expect
// it: booleans carry only the type, enumerated sets list their values,
// everything else reports min and max.
func outputRangeJSON(r schema.OutputRange) map[string]any {
	m := map[string]any{"type": string(r.Type)}
	switch {
	case r.Type == schema.ValueBoolean:
	case len(r.Values) > 0:
		m["values"] = r.Values
	default:
		m["min"] = r.Min
		m["max"] = r.Max
	}
	return m
}
