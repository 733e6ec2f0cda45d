package pipe

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
)

// Reader is the source the listener polls.
type Reader interface {
	Read() (string, error)
}

// Listener polls the control pipe and feeds valid commands to the queue.
type Listener struct {
	reader   Reader
	queue    *queue.Queue
	interval time.Duration
}

func NewListener(reader Reader, q *queue.Queue, interval time.Duration) *Listener {
	return &Listener{reader: reader, queue: q, interval: interval}
}

// Listen polls until ctx is cancelled.
func (l *Listener) Listen(ctx context.Context) {
	log.Printf("Pipe: listening every %v", l.interval)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Pipe: listener stopped")
			return
		case <-ticker.C:
			l.Poll()
		}
	}
}

// Poll performs a single read. It reports whether a command was enqueued.
func (l *Listener) Poll() bool {
	raw, err := l.reader.Read()
	if err != nil {
		log.Printf("Pipe: %v", err)
		return false
	}
	if raw == "" {
		return false
	}

	cmd, err := protocol.Parse(raw)
	if err != nil {
		if !errors.Is(err, protocol.ErrEmpty) {
			log.Printf("Pipe: rejected %q: %v", raw, err)
		}
		return false
	}
	return Enqueue(l.queue, cmd, "pipe")
}

// Enqueue pushes cmd and logs the outcome. Shared by every command source.
func Enqueue(q *queue.Queue, cmd models.Command, source string) bool {
	if err := q.Push(cmd); err != nil {
		log.Printf("Pipe: dropping %s command %v %v: %v", source, cmd.Codes, cmd.Params, err)
		return false
	}
	log.Printf("Pipe: queued %s command %v %v", source, cmd.Codes, cmd.Params)
	return true
}
