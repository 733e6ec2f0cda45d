package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
)

// GetHistoryHandler returns the latest dispatch attempts of one camera.
// ?limit=N bounds the result.
func (h *Handlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "History is not configured", http.StatusNotFound)
		return
	}

	slot, ok := h.cameraSlot(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		var err error
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
	}

	recs, err := h.history.RecentAttempts(r.Context(), slot, limit)
	if err != nil {
		log.Printf("API: history for camera %d: %v", slot, err)
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []models.DispatchRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}
