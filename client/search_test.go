package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caaa-research/engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClarify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/clarify", r.URL.Path)
		var req ClarifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "messages about hearing loss", req.Intent)

		json.NewEncoder(w).Encode(envelope{
			Success: true,
			Data:    mustMarshal(t, map[string]bool{"vague": false}),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	result, err := c.Clarify(context.Background(), "messages about hearing loss")
	require.NoError(t, err)
	assert.False(t, result.Vague)
}

func TestSubmitSearchAndPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/searches":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(envelope{
				Success: true,
				Data:    mustMarshal(t, SubmitSearchResponse{SearchID: "s1", Status: types.SearchStatusPending}),
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/searches/s1":
			json.NewEncoder(w).Encode(envelope{
				Success: true,
				Data:    mustMarshal(t, types.Search{ID: "s1", Status: types.SearchStatusRunning}),
			})
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)

	submitted, err := c.SubmitSearch(context.Background(), "messages about hearing loss", types.QueryTypeGeneral)
	require.NoError(t, err)
	assert.Equal(t, "s1", submitted.SearchID)

	status, err := c.GetSearchStatus(context.Background(), submitted.SearchID)
	require.NoError(t, err)
	assert.Equal(t, types.SearchStatusRunning, status.Status)
}

func TestParseResponseErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(envelope{Success: false, Message: "real_question is required"})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.SubmitSearch(context.Background(), "", types.QueryTypeGeneral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "real_question is required")
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
