package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

// maxBody bounds POST /command bodies.
const maxBody = 4096

// StateSource reports the current state of every camera.
type StateSource interface {
	States() []models.CameraState
}

// HistorySource returns the latest dispatch attempts for a camera.
type HistorySource interface {
	RecentAttempts(ctx context.Context, camera, limit int) ([]models.DispatchRecord, error)
}

// ArchiveCounter counts the media files archived for a camera.
type ArchiveCounter interface {
	CountArchived(ctx context.Context, slot int) (int, error)
}

type Handlers struct {
	states  StateSource
	history HistorySource
	archive ArchiveCounter
	queue   *queue.Queue
}

// NewHandlers wires the HTTP surface. history and archive may be nil when
// no database or object store is configured.
func NewHandlers(states StateSource, history HistorySource, archive ArchiveCounter, q *queue.Queue) *Handlers {
	return &Handlers{states: states, history: history, archive: archive, queue: q}
}

// Router registers every endpoint.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", h.GetStatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/cameras/{slot:[0-9]+}/history", h.GetHistoryHandler).Methods(http.MethodGet)
	r.HandleFunc("/cameras/{slot:[0-9]+}/archive", h.GetArchiveHandler).Methods(http.MethodGet)
	r.HandleFunc("/command", h.PostCommandHandler).Methods(http.MethodPost)
	return r
}

// cameraSlot resolves the {slot} route variable to a known camera.
func (h *Handlers) cameraSlot(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(mux.Vars(r)["slot"])
	if err != nil {
		http.Error(w, "Invalid camera slot", http.StatusBadRequest)
		return 0, false
	}
	if !lo.ContainsBy(h.states.States(), func(s models.CameraState) bool { return s.Slot == slot }) {
		http.Error(w, "Camera not found", http.StatusNotFound)
		return 0, false
	}
	return slot, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
