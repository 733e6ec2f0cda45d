package api

import "net/http"

// GetStatusHandler отдает состояние всех камер
func (h *Handlers) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.states.States())
}
