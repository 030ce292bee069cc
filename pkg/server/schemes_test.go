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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listSchemes(t *testing.T, srv *Server, url string) []schemeInfo {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []schemeInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSchemesListing(t *testing.T) {
	srv := newTestServer(t, defaultJudge(), neutralityDoc, minorsGateDoc, complianceDoc)

	out := listSchemes(t, srv, "/schemes")
	require.Len(t, out, 3)

	neutrality := out[0]
	assert.Equal(t, "neutralitaet_old", neutrality.ID)
	assert.Equal(t, "Neutralität", neutrality.Name)
	assert.Equal(t, "ordinal_rubric", neutrality.Kind)
	assert.Equal(t, "neutralitaet", neutrality.Dimension)
	assert.Equal(t, "1.0", neutrality.Version)
	assert.NotEmpty(t, neutrality.Description)
	assert.Equal(t, "int", neutrality.OutputRange["type"])
	assert.Equal(t, 1.0, neutrality.OutputRange["min"])
	assert.Equal(t, 5.0, neutrality.OutputRange["max"])
	assert.Empty(t, neutrality.Dependencies)

	gate := out[1]
	assert.Equal(t, "jugendschutz_gate", gate.ID)
	assert.Equal(t, "boolean", gate.OutputRange["type"])
	assert.NotContains(t, gate.OutputRange, "min")

	derived := out[2]
	assert.Equal(t, "rechtliche_compliance", derived.ID)
	assert.Equal(t, []string{"jugendschutz_gate"}, derived.Dependencies)
}

func TestSchemesHidesPartsByDefault(t *testing.T) {
	srv := newTestServer(t, defaultJudge(), neutralityDoc, neutralityPartDoc)

	out := listSchemes(t, srv, "/schemes")
	require.Len(t, out, 1)
	assert.Equal(t, "neutralitaet_old", out[0].ID)

	out = listSchemes(t, srv, "/schemes?include_parts=true")
	require.Len(t, out, 2)
}

func TestSchemesContextTypeFilter(t *testing.T) {
	srv := newTestServer(t, defaultJudge(), neutralityDoc, minorsGateDoc, complianceDoc)

	// Platform context keeps the gate (one platform rule) and the derived
	// scheme that depends on it, but not the plain ordinal.
	out := listSchemes(t, srv, "/schemes?context_type=platform")
	require.Len(t, out, 2)
	assert.Equal(t, "jugendschutz_gate", out[0].ID)
	assert.Equal(t, "rechtliche_compliance", out[1].ID)
}

func TestSchemesRejectsBadParams(t *testing.T) {
	srv := newTestServer(t, defaultJudge(), neutralityDoc)
	h := srv.Handler()

	for _, url := range []string{
		"/schemes?include_parts=maybe",
		"/schemes?context_type=galaxy",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"], url)
	}
}
