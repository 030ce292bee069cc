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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Scheme {
	t.Helper()
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	return s
}

func ordinalScheme(t *testing.T, id string) *Scheme {
	t.Helper()
	return mustParse(t, fmt.Sprintf(`
id: %s
name: Scheme %s
dimension: %s
kind: ordinal
output_range: {type: int, min: 1, max: 3}
anchors:
  - {value: 3, label: Good}
  - {value: 2, label: Fair}
  - {value: 1, label: Poor}
`, id, id, id))
}

func gateScheme(t *testing.T, id string, scopes ...string) *Scheme {
	t.Helper()
	doc := fmt.Sprintf(`
id: %s
name: Gate %s
dimension: %s
kind: binary_gate
output_range: {type: boolean}
rules:
`, id, id, id)
	for i, scope := range scopes {
		doc += fmt.Sprintf("  - {id: r%d, reason: reason %d, scope: %s}\n", i, i, scope)
	}
	return mustParse(t, doc)
}

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ordinalScheme(t, "tone")))

	s, err := reg.Get("tone")
	require.NoError(t, err)
	assert.Equal(t, "tone", s.ID)

	_, err = reg.Get("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ordinalScheme(t, "tone")))
	err := reg.Register(ordinalScheme(t, "tone"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestIsPart(t *testing.T) {
	assert.True(t, IsPart("minors_gate_part1"))
	assert.True(t, IsPart("minors_gate_part42"))
	assert.False(t, IsPart("minors_gate"))
	assert.False(t, IsPart("minors_gate_part"))
	assert.False(t, IsPart("part1_minors"))
}

func TestRegistryListHidesParts(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ordinalScheme(t, "tone")))
	require.NoError(t, reg.Register(ordinalScheme(t, "tone_part1")))
	require.NoError(t, reg.Register(ordinalScheme(t, "tone_part2")))

	listed := reg.List(ListFilter{})
	require.Len(t, listed, 1)
	assert.Equal(t, "tone", listed[0].ID)

	all := reg.List(ListFilter{IncludeParts: true})
	assert.Len(t, all, 3)
	assert.Equal(t, 3, reg.Len(), "Len counts parts")
}

func TestRegistryListKindFilter(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ordinalScheme(t, "tone")))
	require.NoError(t, reg.Register(gateScheme(t, "minors", "content")))

	gates := reg.List(ListFilter{Kind: KindGate})
	require.Len(t, gates, 1)
	assert.Equal(t, "minors", gates[0].ID)
}

func TestRegistryListContextFilter(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ordinalScheme(t, "tone")))
	require.NoError(t, reg.Register(gateScheme(t, "content_gate", "content")))
	require.NoError(t, reg.Register(gateScheme(t, "platform_gate", "platform")))
	require.NoError(t, reg.Register(gateScheme(t, "mixed_gate", "platform", "both")))
	require.NoError(t, reg.Register(mustParse(t, `
id: compliance
name: Compliance
dimension: compliance
kind: derived
output_range: {type: boolean}
dependencies: [content_gate]
rules:
  - {value: and_gate}
`)))
	require.NoError(t, reg.validateGraph())

	ids := func(schemes []*Scheme) []string {
		out := make([]string, 0, len(schemes))
		for _, s := range schemes {
			out = append(out, s.ID)
		}
		return out
	}

	content := reg.List(ListFilter{ContextType: ScopeContent})
	assert.Equal(t, []string{"content_gate", "mixed_gate", "compliance"}, ids(content),
		"content context keeps content and both rules, plus derived schemes over them")

	platform := reg.List(ListFilter{ContextType: ScopePlatform})
	assert.Equal(t, []string{"platform_gate", "mixed_gate"}, ids(platform))

	both := reg.List(ListFilter{ContextType: ScopeBoth})
	assert.Equal(t, []string{"content_gate", "platform_gate", "mixed_gate", "compliance"}, ids(both))

	unfiltered := reg.List(ListFilter{})
	assert.Len(t, unfiltered, 5, "no context filter lists every kind")
}
