package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blockhead22/crt/internal/service"
	"github.com/google/uuid"
)

// GateMetrics counts answers the disclosure gate refused to pass.
type GateMetrics interface {
	CountGateFailure()
}

type AnswerHandler struct {
	svc     *service.GateService
	metrics GateMetrics
}

func NewAnswerHandler(svc *service.GateService, metrics GateMetrics) *AnswerHandler {
	return &AnswerHandler{svc: svc, metrics: metrics}
}

type answerRequest struct {
	ThreadID string `json:"thread_id"`
	Query    string `json:"query"`
	Slot     string `json:"slot,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
}

// Answer retrieves candidate facts for a query, annotated with contested
// and disclosure caveats. A gate failure is not an HTTP error: the caller
// gets 200 with gates_passed=false and a clarification question to relay.
func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.svc.Answer(r.Context(), threadID, req.Query, req.Slot, req.TopK)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to answer")
		return
	}

	if !result.GatesPassed && h.metrics != nil {
		h.metrics.CountGateFailure()
	}

	writeJSON(w, http.StatusOK, result)
}
