package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blockhead22/crt/internal/service"
	"github.com/google/uuid"
)

type IngestHandler struct {
	svc *service.IngestService
}

func NewIngestHandler(svc *service.IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type ingestRequest struct {
	ThreadID string `json:"thread_id"`
	Text     string `json:"text"`
}

type ingestResponse struct {
	Results []service.IngestResult `json:"results"`
}

func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	threadID, err := uuid.Parse(req.ThreadID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}

	results, err := h.svc.Ingest(r.Context(), threadID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIngestTextEmpty),
			errors.Is(err, service.ErrIngestThreadMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to ingest")
		}
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Results: results})
}
