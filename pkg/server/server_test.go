package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/salescope/pkg/analyst"
	"github.com/meridianlabs/salescope/pkg/history"
)

type stubAnalyst struct {
	state analyst.State
}

func (s *stubAnalyst) Execute(ctx context.Context, question string) analyst.State {
	state := s.state
	state.Question = question
	return state
}

func newTestServer(state analyst.State) (*Server, *history.Log) {
	hist := history.New()
	return New(nil, &stubAnalyst{state: state}, hist), hist
}

func TestHandleAsk(t *testing.T) {
	srv, hist := newTestServer(analyst.State{
		Analysis:       "Acme leads by revenue.",
		StepsCompleted: []string{"understand_query", "retrieve_context", "generate_query", "execute_query", "analyze_results"},
		Rows:           []map[string]any{{"customer_name": "Acme"}},
	})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"top customers"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result analyst.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "top customers", result.Question)
	assert.Equal(t, "Acme leads by revenue.", result.Analysis)
	assert.Len(t, result.QueryResults, 1)
	assert.Contains(t, result.StepsCompleted, "analyze_results")

	assert.Equal(t, 1, hist.Len())
}

func TestHandleAskRejectsEmptyQuestion(t *testing.T) {
	srv, _ := newTestServer(analyst.State{})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"  "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAskRejectsBadBody(t *testing.T) {
	srv, _ := newTestServer(analyst.State{})
	router := srv.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistoryAndStatus(t *testing.T) {
	srv, hist := newTestServer(analyst.State{Analysis: "fine"})
	router := srv.Router()

	hist.Record(analyst.State{Question: "earlier", Analysis: "fine"})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Count   int             `json:"count"`
		Entries []history.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, 1, payload.Count)
	assert.Equal(t, "earlier", payload.Entries[0].Question)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
