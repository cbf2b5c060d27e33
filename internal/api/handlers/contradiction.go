package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blockhead22/crt/internal/domain"
	"github.com/blockhead22/crt/internal/service"
	"github.com/blockhead22/crt/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ContradictionHandler struct {
	ledger domain.LedgerStore
	svc    *service.ResolutionService
}

func NewContradictionHandler(ledger domain.LedgerStore, svc *service.ResolutionService) *ContradictionHandler {
	return &ContradictionHandler{ledger: ledger, svc: svc}
}

func (h *ContradictionHandler) List(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(r.URL.Query().Get("thread_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}
	slot := r.URL.Query().Get("slot")

	var statuses []domain.LedgerStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := domain.LedgerStatus(v)
		if !domain.ValidLedgerStatus(st) {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		statuses = append(statuses, st)
	}

	entries, err := h.ledger.ListBySlot(r.Context(), threadID, slot, statuses)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list contradictions")
		return
	}

	// has_open_conflict reflects the thread/slot, not just the filtered
	// page, so a status filter that excludes OPEN needs its own lookup.
	hasOpen := false
	for _, e := range entries {
		if e.Status == domain.StatusOpen {
			hasOpen = true
			break
		}
	}
	if !hasOpen && len(statuses) > 0 && statuses[0] != domain.StatusOpen {
		openEntries, err := h.ledger.ListBySlot(r.Context(), threadID, slot, []domain.LedgerStatus{domain.StatusOpen})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list contradictions")
			return
		}
		hasOpen = len(openEntries) > 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contradictions":    entries,
		"has_open_conflict": hasOpen,
	})
}

func (h *ContradictionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}

	entry, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ledger entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ledger entry")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

type resolveRequest struct {
	Method       string `json:"method"`
	ChosenFactID string `json:"chosen_fact_id,omitempty"`
	AnswerText   string `json:"answer_text,omitempty"`
}

func (h *ContradictionHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ledger id")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcReq := service.ResolveRequest{
		LedgerID:   id,
		Method:     domain.ResolutionMethod(req.Method),
		AnswerText: req.AnswerText,
	}
	if req.ChosenFactID != "" {
		chosen, err := uuid.Parse(req.ChosenFactID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid chosen_fact_id")
			return
		}
		svcReq.ChosenFactID = &chosen
	}

	outcome, err := h.svc.Resolve(r.Context(), svcReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLedgerEntryNotFound),
			errors.Is(err, service.ErrFactNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, domain.ErrInvariantViolation):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to resolve contradiction")
		}
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}
