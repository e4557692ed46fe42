// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAnswerer records the queries it was asked and returns a canned result.
type fakeAnswerer struct {
	queries []string
	result  types.AnswerResult
}

func (f *fakeAnswerer) Answer(_ context.Context, query string) types.AnswerResult {
	f.queries = append(f.queries, query)
	res := f.result
	res.Query = query
	return res
}

func testServer(f *fakeAnswerer) *Server {
	return New(f, nil, types.ServerConfig{AllowedOrigins: []string{"*"}}, "0.1.0", true)
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestQueryEndpoint(t *testing.T) {
	f := &fakeAnswerer{result: types.AnswerResult{
		Success: true,
		Answer:  "**Rainfall Comparison**",
		Sources: []types.Citation{{
			Dataset:    "Rainfall in India",
			Source:     "India Meteorological Department (IMD)",
			URL:        "https://example.org/rainfall",
			ResourceID: "rain-res",
		}},
		Timestamp: time.Now().UTC(),
	}}
	s := testServer(f)

	w := doRequest(t, s, http.MethodPost, "/api/query", `{"query":"Compare rainfall in Punjab and Haryana"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res types.AnswerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Compare rainfall in Punjab and Haryana", res.Query)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "rain-res", res.Sources[0].ResourceID)

	require.Len(t, f.queries, 1)
}

func TestQueryFailureStillHTTP200(t *testing.T) {
	f := &fakeAnswerer{result: types.AnswerResult{
		Success: false,
		Answer:  "The data portal rejected our credentials.",
		Sources: []types.Citation{},
		Error:   "auth",
	}}
	s := testServer(f)

	w := doRequest(t, s, http.MethodPost, "/api/query", `{"query":"Compare rainfall in Punjab and Haryana"}`)
	require.Equal(t, http.StatusOK, w.Code, "pipeline failures are soft, never HTTP errors")

	var res types.AnswerResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "auth", res.Error)
}

func TestQueryEmptyBody(t *testing.T) {
	f := &fakeAnswerer{}
	s := testServer(f)

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query":""}`},
		{"whitespace query", `{"query":"   "}`},
		{"missing field", `{}`},
		{"broken json", `{broken`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, "/api/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var res types.AnswerResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.Equal(t, "bad_request", res.Error)
		})
	}
	assert.Empty(t, f.queries, "bad requests must not reach the pipeline")
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(&fakeAnswerer{})

	w := doRequest(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "0.1.0", body["version"])
	assert.Equal(t, true, body["api_key_configured"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestDatasetsEndpoint(t *testing.T) {
	s := testServer(&fakeAnswerer{})

	w := doRequest(t, s, http.MethodGet, "/api/datasets", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Datasets []map[string]any `json:"datasets"`
		Count    int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Datasets, 2)
	assert.NotEmpty(t, body.Datasets[0]["resource_id"])
}

func TestLanding(t *testing.T) {
	s := testServer(&fakeAnswerer{})

	w := doRequest(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/query")
}

func TestCORSPreflight(t *testing.T) {
	s := testServer(&fakeAnswerer{})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	req.Header.Set("Origin", "https://samarth.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
