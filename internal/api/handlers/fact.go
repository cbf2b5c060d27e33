package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/blockhead22/crt/internal/service"
	"github.com/blockhead22/crt/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type FactHandler struct {
	facts    domain.FactStore
	trustLog domain.TrustLogStore
	ingest   *service.IngestService
}

func NewFactHandler(facts domain.FactStore, trustLog domain.TrustLogStore, ingest *service.IngestService) *FactHandler {
	return &FactHandler{facts: facts, trustLog: trustLog, ingest: ingest}
}

type createFactRequest struct {
	ThreadID   string  `json:"thread_id"`
	Slot       string  `json:"slot"`
	Value      string  `json:"value"`
	Confidence float32 `json:"confidence,omitempty"`
}

// Create asserts a single pre-extracted fact. It runs the same
// classification pipeline as free-text ingest, so an assertion that
// contradicts a stored fact still opens a ledger entry.
func (h *FactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}
	if req.Slot == "" || req.Value == "" {
		writeError(w, http.StatusBadRequest, "slot and value are required")
		return
	}

	tuple := domain.ExtractedFact{Slot: req.Slot, Value: req.Value, Confidence: req.Confidence}
	result, err := h.ingest.ProcessAssertion(r.Context(), threadID, tuple, req.Value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store fact")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *FactHandler) List(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(r.URL.Query().Get("thread_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}
	slot := r.URL.Query().Get("slot")
	if slot == "" {
		writeError(w, http.StatusBadRequest, "slot is required")
		return
	}

	opts := domain.FactQueryOpts{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("include_deprecated"); v == "true" {
		opts.IncludeDeprecated = true
	}

	facts, err := h.facts.GetBySlot(r.Context(), threadID, slot, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list facts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"facts": facts})
}

func (h *FactHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	fact, err := h.facts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "fact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get fact")
		return
	}

	writeJSON(w, http.StatusOK, fact)
}

// TrustHistory returns the append-only trust event log for one fact, oldest
// first. The fact's current trust is always the result of replaying these.
func (h *FactHandler) TrustHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid fact id")
		return
	}

	if _, err := h.facts.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "fact not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get fact")
		return
	}

	events, err := h.trustLog.ListByFact(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trust events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
