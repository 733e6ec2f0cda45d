package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
)

// PostCommandHandler parses a wire-format command from the body and queues it.
func (h *Handlers) PostCommandHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		http.Error(w, "Could not read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxBody {
		http.Error(w, "Command too long", http.StatusRequestEntityTooLarge)
		return
	}

	cmd, err := protocol.Parse(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.queue.Push(cmd); err != nil {
		if errors.Is(err, queue.ErrFull) {
			log.Printf("API: dropped command %s: %v", cmd.ID, err)
			http.Error(w, "Command queue is full", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":    cmd.ID,
		"codes": cmd.Codes,
		"group": cmd.Group,
	})
}
