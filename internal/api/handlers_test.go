package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/silveragent/internal/agent"
	"github.com/rewired-gh/silveragent/internal/journal"
	"github.com/rewired-gh/silveragent/internal/models"
	"github.com/rewired-gh/silveragent/internal/pricing"
)

func setupTestRouter(t *testing.T, withJournal bool) (http.Handler, *agent.Agent) {
	t.Helper()
	var j Journal
	var opts []agent.Option
	if withJournal {
		jr, err := journal.New(100, journal.MemoryDSN)
		require.NoError(t, err)
		t.Cleanup(func() { _ = jr.Close() })
		j = jr
		opts = append(opts, agent.WithSinks(jr))
	}
	opts = append(opts, agent.WithClock(clock.NewMock()), agent.WithRand(pricing.NewSequence(0.5)))
	a := agent.New(agent.DefaultConfig(), opts...)
	a.RunCycle()
	return NewRouter(NewHandlers(a, j), nil), a
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheck(t *testing.T) {
	h, _ := setupTestRouter(t, false)
	rr := doRequest(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestGetSnapshot(t *testing.T) {
	h, a := setupTestRouter(t, false)
	rr := doRequest(t, h, http.MethodGet, "/api/snapshot", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var snap agent.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	want := a.Snapshot()
	assert.Len(t, snap.Sources, len(want.Sources))
	assert.Len(t, snap.PriceHistory, 1)
	assert.Equal(t, want.CurrentPrice, snap.CurrentPrice)
	assert.Equal(t, want.Agent, snap.Agent)
	assert.Len(t, snap.Decisions, len(want.Decisions))
}

func TestGetDecisions_Limit(t *testing.T) {
	h, _ := setupTestRouter(t, false)

	rr := doRequest(t, h, http.MethodGet, "/api/decisions?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var decisions []models.AgentDecision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &decisions))
	assert.Len(t, decisions, 2)

	rr = doRequest(t, h, http.MethodGet, "/api/decisions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetSourcesAgentPrices(t *testing.T) {
	h, _ := setupTestRouter(t, false)

	rr := doRequest(t, h, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var sources []models.DataSource
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sources))
	assert.Len(t, sources, 4)

	rr = doRequest(t, h, http.MethodGet, "/api/agent", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var state models.AgentState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, models.ModeAdaptive, state.Mode)

	rr = doRequest(t, h, http.MethodGet, "/api/prices", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "currentPrice")
}

func TestJournalStats(t *testing.T) {
	h, _ := setupTestRouter(t, false)
	rr := doRequest(t, h, http.MethodGet, "/api/journal/stats", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	h, a := setupTestRouter(t, true)
	rr = doRequest(t, h, http.MethodGet, "/api/journal/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats journal.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, len(a.Snapshot().Decisions), stats.Total)
}

func TestPutMode(t *testing.T) {
	h, a := setupTestRouter(t, false)

	rr := doRequest(t, h, http.MethodPut, "/api/mode", map[string]string{"mode": "conservative"})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, models.ModeConservative, a.Snapshot().Agent.Mode)

	rr = doRequest(t, h, http.MethodPut, "/api/mode", map[string]string{"mode": "reckless"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPutSourceStatus(t *testing.T) {
	h, a := setupTestRouter(t, false)

	rr := doRequest(t, h, http.MethodPut, "/api/sources/lbma/status", map[string]string{"status": "offline"})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	for _, s := range a.Snapshot().Sources {
		if s.ID == "lbma" {
			assert.Equal(t, models.StatusOffline, s.Status)
		}
	}

	rr = doRequest(t, h, http.MethodPut, "/api/sources/nope/status", map[string]string{"status": "offline"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, h, http.MethodPut, "/api/sources/lbma/status", map[string]string{"status": "exploded"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, status := range []string{"stale", "refreshing"} {
		rr = doRequest(t, h, http.MethodPut, "/api/sources/reuters/status", map[string]string{"status": status})
		assert.Equal(t, http.StatusBadRequest, rr.Code, status)
	}
	assert.Equal(t, models.StatusActive, a.Snapshot().Sources[0].Status)
}

func TestJournalDecisions(t *testing.T) {
	h, _ := setupTestRouter(t, false)
	rr := doRequest(t, h, http.MethodGet, "/api/journal/decisions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	h, a := setupTestRouter(t, true)
	require.NoError(t, a.SetSourceStatus("lbma", models.StatusOffline))
	snap := a.Snapshot()

	rr = doRequest(t, h, http.MethodGet, "/api/journal/decisions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []models.AgentDecision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	require.Len(t, all, len(snap.Decisions))
	assert.Equal(t, snap.Decisions[0].ID, all[0].ID, "newest first")

	rr = doRequest(t, h, http.MethodGet, "/api/journal/decisions?type=reallocate", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var realloc []models.AgentDecision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &realloc))
	require.Len(t, realloc, 1)
	assert.Equal(t, "lbma", realloc[0].SourceID)

	rr = doRequest(t, h, http.MethodGet, "/api/journal/decisions?limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var limited []models.AgentDecision
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &limited))
	assert.Len(t, limited, 2)

	rr = doRequest(t, h, http.MethodGet, "/api/journal/decisions?type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doRequest(t, h, http.MethodGet, "/api/journal/decisions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
