package api

import (
	"log"
	"net/http"
)

// GetArchiveHandler reports how many media files of a camera are archived.
func (h *Handlers) GetArchiveHandler(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		http.Error(w, "Archive is not configured", http.StatusNotFound)
		return
	}
	slot, ok := h.cameraSlot(w, r)
	if !ok {
		return
	}

	count, err := h.archive.CountArchived(r.Context(), slot)
	if err != nil {
		log.Printf("API: archive count for camera %d: %v", slot, err)
		http.Error(w, "Archive error", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"camera": slot, "archived": count})
}
