package handler

import (
	"net/http"
	"strconv"

	"github.com/freeeve/casus-belli/api/internal/model"
	"github.com/freeeve/casus-belli/api/internal/repository"
)

// LogHandler serves the append-only game audit log.
type LogHandler struct {
	log repository.GameLogRepository
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(log repository.GameLogRepository) *LogHandler {
	return &LogHandler{log: log}
}

// ListLog handles GET /api/v1/games/{id}/log?limit=N, newest first.
func (h *LogHandler) ListLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.log.ListByGame(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []model.GameLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
