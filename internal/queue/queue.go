package queue

import (
	"errors"
	"sync"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
)

// ErrFull is returned by Push when the queue already holds the maximum
// number of pending commands.
var ErrFull = errors.New("command queue is full")

// Queue is the FIFO between command producers (pipe listener, Kafka, HTTP)
// and the dispatcher.
type Queue struct {
	mu    sync.Mutex
	items []models.Command
	limit int
}

// New creates a queue that holds at most limit commands. A non-positive
// limit means unbounded.
func New(limit int) *Queue {
	return &Queue{limit: limit}
}

// Push appends cmd, blocking only for the lock.
func (q *Queue) Push(cmd models.Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.items) >= q.limit {
		return ErrFull
	}
	q.items = append(q.items, cmd)
	return nil
}

// TryPop removes the oldest command. It never waits: if a producer holds
// the lock, or the queue is empty, ok is false and the caller retries on
// its next iteration.
func (q *Queue) TryPop() (cmd models.Command, ok bool) {
	if !q.mu.TryLock() {
		return models.Command{}, false
	}
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return models.Command{}, false
	}
	cmd = q.items[0]
	q.items[0] = models.Command{}
	q.items = q.items[1:]
	return cmd, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
