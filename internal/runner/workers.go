package runner

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
)

// task is one background loop. A task runs at most once; resuming after a
// pause uses a fresh set built by the factory.
type task struct {
	name   string
	run    func(ctx context.Context)
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *task) running() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// workerPair is the pause/resume controller of the preview and motion
// workers.
type workerPair struct {
	factory func() []*task

	mu    sync.Mutex
	tasks []*task
}

func newWorkerPair(factory func() []*task) *workerPair {
	return &workerPair{factory: factory, tasks: factory()}
}

// Resume starts every task that is not running.
func (w *workerPair) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, t := range w.tasks {
		if t.running() {
			continue
		}
		if t.done != nil {
			// Finished on its own; tasks do not restart.
			t = w.factory()[i]
			w.tasks[i] = t
		}
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.done = make(chan struct{})
		go func(t *task) {
			defer close(t.done)
			t.run(ctx)
		}(t)
		log.Printf("Runner: %s worker started", t.name)
	}
}

// Stop cancels every task and waits for all of them to return.
func (w *workerPair) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.tasks {
		if t.cancel != nil {
			t.cancel()
		}
	}
	for _, t := range w.tasks {
		if t.done != nil {
			<-t.done
		}
	}
}

// Pause stops the workers and prepares fresh, unstarted ones.
func (w *workerPair) Pause() {
	w.Stop()
	w.mu.Lock()
	w.tasks = w.factory()
	w.mu.Unlock()
}

// Running reports how many tasks are running.
func (w *workerPair) Running() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, t := range w.tasks {
		if t.running() {
			n++
		}
	}
	return n
}

func (r *Runner) workerTasks() []*task {
	return []*task{
		{name: "preview", run: r.previewLoop},
		{name: "motion", run: r.motionLoop},
	}
}

// pauseWorkers halts the main camera, stops both workers and joins them.
// The halted status is lifted again once they are gone. A main camera in
// error keeps its error.
func (r *Runner) pauseWorkers() {
	main := r.Main()
	if main.Status().IsError() {
		r.workers.Pause()
		return
	}
	main.SetStatus(models.StatusHalted)
	r.workers.Pause()
	main.clearHalted()
}

func (r *Runner) resumeWorkers() {
	r.workers.Resume()
}

// workerActive reports whether background workers should keep going.
func (r *Runner) workerActive(ctx context.Context) bool {
	return ctx.Err() == nil && r.Main().Status() != models.StatusHalted
}

// frameDelay is the preview period derived from the main camera frame rate.
func (r *Runner) frameDelay() time.Duration {
	cfg := r.Main().Config()
	fps := float64(max(cfg.VideoFPS, 1)) / float64(max(cfg.Divider, 1))
	return time.Duration(float64(time.Second) / fps)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
