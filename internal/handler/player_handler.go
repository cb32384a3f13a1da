package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
)

// PlayerHandler serves archived history and win/loss records by handle.
type PlayerHandler struct {
	archive *service.ArchiveService
}

// NewPlayerHandler creates a PlayerHandler.
func NewPlayerHandler(archive *service.ArchiveService) *PlayerHandler {
	return &PlayerHandler{archive: archive}
}

// ListMatches handles GET /api/v1/players/{handle}/matches?limit=N.
func (h *PlayerHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(chi.URLParam(r, "handle"))
	if handle == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative number")
			return
		}
		limit = n
	}

	results, err := h.archive.History(r.Context(), handle, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if results == nil {
		results = []model.MatchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetStats handles GET /api/v1/players/{handle}/stats.
func (h *PlayerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimSpace(chi.URLParam(r, "handle"))
	if handle == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}
	stats, err := h.archive.Stats(r.Context(), handle)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
