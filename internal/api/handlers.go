package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rewired-gh/silveragent/internal/agent"
	"github.com/rewired-gh/silveragent/internal/journal"
	"github.com/rewired-gh/silveragent/internal/logger"
	"github.com/rewired-gh/silveragent/internal/models"
)

// Agent is what the handlers need from the running agent.
type Agent interface {
	Snapshot() agent.Snapshot
	SetMode(mode models.Mode) error
	SetSourceStatus(id string, status models.SourceStatus) error
}

// Journal is the optional decision journal.
type Journal interface {
	Recent(n int) ([]models.AgentDecision, error)
	ByType(t models.DecisionType, n int) ([]models.AgentDecision, error)
	CountByType() (journal.Stats, error)
}

// defaultJournalLimit applies when /api/journal/decisions has no limit.
const defaultJournalLimit = 50

// Handlers serves the HTTP surface.
type Handlers struct {
	agent   Agent
	journal Journal
}

// NewHandlers creates handlers; j may be nil when the journal is disabled.
func NewHandlers(a Agent, j Journal) *Handlers {
	return &Handlers{agent: a, journal: j}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.agent.Snapshot())
}

func (h *Handlers) GetSources(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.agent.Snapshot().Sources)
}

func (h *Handlers) GetAgentState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.agent.Snapshot().Agent)
}

func (h *Handlers) GetPrices(w http.ResponseWriter, r *http.Request) {
	snap := h.agent.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"currentPrice": snap.CurrentPrice,
		"history":      snap.PriceHistory,
	})
}

// GetDecisions returns the newest decisions, optionally truncated by ?limit=n.
func (h *Handlers) GetDecisions(w http.ResponseWriter, r *http.Request) {
	decisions := h.agent.Snapshot().Decisions
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(decisions) {
			decisions = decisions[:n]
		}
	}
	respondJSON(w, http.StatusOK, decisions)
}

func (h *Handlers) GetJournalStats(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusNotFound, "journal disabled")
		return
	}
	stats, err := h.journal.CountByType()
	if err != nil {
		logger.Error("Failed to read journal stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetJournalDecisions queries the journal, newest first. ?type= filters by
// decision type and ?limit= caps the result.
func (h *Handlers) GetJournalDecisions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusNotFound, "journal disabled")
		return
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		decisions []models.AgentDecision
		err       error
	)
	if raw := r.URL.Query().Get("type"); raw != "" {
		typ, perr := models.ParseDecisionType(raw)
		if perr != nil {
			respondError(w, http.StatusBadRequest, perr.Error())
			return
		}
		decisions, err = h.journal.ByType(typ, limit)
	} else {
		decisions, err = h.journal.Recent(limit)
	}
	if err != nil {
		logger.Error("Failed to query journal: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	respondJSON(w, http.StatusOK, decisions)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handlers) PutMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.agent.SetMode(mode); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handlers) PutSourceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := models.ParseSourceStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.agent.SetSourceStatus(chi.URLParam(r, "id"), status); err != nil {
		if errors.Is(err, agent.ErrUnknownSource) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
