package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/kafka"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/pipe"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultLoopInterval = 10 * time.Millisecond
	historyTimeout      = 2 * time.Second
	archiveTimeout      = 5 * time.Minute
)

var (
	ErrNoCamera   = errors.New("no camera in slot")
	ErrRefused    = errors.New("camera is halted")
	ErrBadParam   = errors.New("invalid parameter")
	ErrUnknownCmd = errors.New("unknown command")
)

// StatusPublisher receives every status the runner writes.
type StatusPublisher interface {
	SendStatus(event models.StatusEvent) error
}

// HistoryStore keeps dispatch attempts.
type HistoryStore interface {
	RecordAttempt(ctx context.Context, rec models.DispatchRecord) error
}

// Archiver copies finished media files somewhere durable.
type Archiver interface {
	Upload(ctx context.Context, slot int, path string) error
}

// MotionAnalyser decides whether a JPEG frame contains motion.
type MotionAnalyser interface {
	Detect(ctx context.Context, frame []byte, slot int) (bool, error)
}

// Deps are the optional collaborators of a Runner. Nil fields are skipped.
type Deps struct {
	Commands  <-chan kafka.Message
	Publisher StatusPublisher
	History   HistoryStore
	Archive   Archiver
	Analyser  MotionAnalyser

	MacrosPath   string
	LoopInterval time.Duration
}

// Runner owns the camera records, dispatches queued commands to them and
// drives the preview and motion workers.
type Runner struct {
	cameras map[int]*Camera
	slots   []int
	main    atomic.Int64
	queue   *queue.Queue

	previewMu    sync.Mutex
	showPreviews map[int]bool

	workers *workerPair

	commands     <-chan kafka.Message
	publisher    StatusPublisher
	history      HistoryStore
	archive      Archiver
	analyser     MotionAnalyser
	macrosPath   string
	loopInterval time.Duration

	uploads sync.WaitGroup
	now     func() time.Time
}

// New creates a runner over cameras. The camera with the lowest slot becomes
// the main camera.
func New(cameras []*Camera, q *queue.Queue, deps Deps) (*Runner, error) {
	if len(cameras) == 0 {
		return nil, errors.New("runner: no cameras")
	}

	r := &Runner{
		cameras:      make(map[int]*Camera, len(cameras)),
		queue:        q,
		showPreviews: make(map[int]bool, len(cameras)),
		commands:     deps.Commands,
		publisher:    deps.Publisher,
		history:      deps.History,
		archive:      deps.Archive,
		analyser:     deps.Analyser,
		macrosPath:   deps.MacrosPath,
		loopInterval: deps.LoopInterval,
		now:          time.Now,
	}
	if r.loopInterval <= 0 {
		r.loopInterval = defaultLoopInterval
	}

	for _, cam := range cameras {
		if _, dup := r.cameras[cam.Slot]; dup {
			return nil, fmt.Errorf("runner: duplicate camera slot %d", cam.Slot)
		}
		r.cameras[cam.Slot] = cam
	}
	r.slots = lo.Keys(r.cameras)
	sort.Ints(r.slots)
	r.main.Store(int64(r.slots[0]))

	r.syncPreviews()
	r.workers = newWorkerPair(r.workerTasks)
	return r, nil
}

// Main returns the main camera.
func (r *Runner) Main() *Camera {
	return r.cameras[int(r.main.Load())]
}

// Camera returns the camera in slot.
func (r *Runner) Camera(slot int) (*Camera, bool) {
	cam, ok := r.cameras[slot]
	return cam, ok
}

// States returns a snapshot of every camera ordered by slot.
func (r *Runner) States() []models.CameraState {
	main := int(r.main.Load())
	return lo.Map(r.slots, func(slot int, _ int) models.CameraState {
		return r.cameras[slot].State(slot == main)
	})
}

func (r *Runner) allCameras() []*Camera {
	return lo.Map(r.slots, func(slot int, _ int) *Camera {
		return r.cameras[slot]
	})
}

// ListenAndRun publishes the initial status, starts the workers and runs the
// dispatch loop until ctx is cancelled, then shuts every camera down.
func (r *Runner) ListenAndRun(ctx context.Context) {
	log.Printf("Runner: %d camera(s), main camera %d", len(r.slots), r.main.Load())
	for _, cam := range r.allCameras() {
		r.publishStatus(cam, "")
	}
	r.workers.Resume()

	ticker := time.NewTicker(r.loopInterval)
	defer ticker.Stop()

	commands := r.commands
	for {
		select {
		case <-ctx.Done():
			log.Println("Runner: shutting down")
			r.Shutdown()
			return
		case msg, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			cmd, err := protocol.Parse(string(msg.Value))
			if err != nil {
				log.Printf("Runner: invalid kafka command %q: %v", msg.Value, err)
				// Не подтверждаем сообщение при ошибке парсинга
				continue
			}
			if !pipe.Enqueue(r.queue, cmd, "kafka") {
				continue
			}
			// Подтверждаем сообщение только после постановки в очередь
			msg.Ack()
		case <-ticker.C:
			r.step(ctx)
		}
	}
}

// step is one iteration of the dispatch loop.
func (r *Runner) step(ctx context.Context) {
	if cmd, ok := r.queue.TryPop(); ok {
		r.Execute(ctx, cmd)
	}
	r.checkDeadlines()
	r.checkTimelapse()
}

// Execute dispatches cmd. A simple command goes to the main camera; a group
// command goes to the camera whose slot equals the position of each code.
func (r *Runner) Execute(ctx context.Context, cmd models.Command) {
	if !cmd.Group {
		r.executeOne(ctx, int(r.main.Load()), cmd.Code(), cmd.Param())
		r.publishStatus(r.Main(), cmd.Code())
		return
	}

	for i, code := range cmd.Codes {
		param := ""
		if i < len(cmd.Params) {
			param = cmd.Params[i]
		}
		r.executeOne(ctx, i, code, param)
	}
	// The main camera always reports; other cameras only when addressed.
	main := r.Main()
	r.publishStatus(main, firstCode(cmd))
	for i, code := range cmd.Codes {
		if cam, ok := r.cameras[i]; ok && code != "" && cam != main {
			r.publishStatus(cam, code)
		}
	}
}

func firstCode(cmd models.Command) string {
	code, _ := lo.Find(cmd.Codes, func(c string) bool { return c != "" })
	return code
}

// executeOne runs a single code against the camera in slot and reports
// whether it succeeded.
func (r *Runner) executeOne(ctx context.Context, slot int, code, param string) bool {
	cam, ok := r.cameras[slot]
	if !ok {
		if code != "" {
			log.Printf("Runner: %q dropped: %v %d", code, ErrNoCamera, slot)
		}
		return false
	}
	if code == "" {
		return false
	}
	def, ok := protocol.Lookup(code)
	if !ok {
		log.Printf("Runner: camera %d: %v %q", slot, ErrUnknownCmd, code)
		return false
	}

	start := time.Now()
	var err error
	switch {
	case def.Class == protocol.RunAll:
		err = r.runAll(param)
	case def.Class == protocol.Macro:
		err = r.runMacro(ctx, cam, param)
	case cam.refusing():
		err = fmt.Errorf("%w (%s)", ErrRefused, cam.Status())
	default:
		err = r.handle(cam, def, param)
	}
	elapsed := time.Since(start)

	if err != nil {
		log.Printf("Runner: camera %d: %s %q failed: %v", slot, code, param, err)
		cam.logf("Command '%s' failed: %v", code, err)
	}
	cam.logf("Attempted to execute '%s' with parameters (%s). Attempt took %.6f seconds.", code, param, elapsed.Seconds())
	r.recordAttempt(ctx, cam, code, param, err == nil, elapsed)

	if err == nil && def.Class != protocol.Macro {
		r.persistSetting(cam, def, param)
	}
	return err == nil
}

func (r *Runner) recordAttempt(ctx context.Context, cam *Camera, code, param string, success bool, elapsed time.Duration) {
	if r.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	rec := models.DispatchRecord{
		ID:        uuid.NewString(),
		Camera:    cam.Slot,
		Code:      code,
		Param:     param,
		Success:   success,
		Elapsed:   elapsed,
		CreatedAt: r.now().UTC(),
	}
	if err := r.history.RecordAttempt(ctx, rec); err != nil {
		log.Printf("Runner: camera %d history: %v", cam.Slot, err)
	}
}

// publishStatus writes the status file of cam and emits a status event.
func (r *Runner) publishStatus(cam *Camera, code string) {
	st := cam.writeStatus()
	if r.publisher == nil {
		return
	}
	if err := r.publisher.SendStatus(models.StatusEvent{
		Camera:    cam.Slot,
		Status:    st,
		Command:   code,
		TimeStamp: r.now().UTC(),
	}); err != nil {
		log.Printf("Runner: camera %d error sending status: %v", cam.Slot, err)
	}
}

// syncPreviews copies every camera's preview flag into the shared map the
// preview worker reads.
func (r *Runner) syncPreviews() {
	r.previewMu.Lock()
	defer r.previewMu.Unlock()
	for slot, cam := range r.cameras {
		r.showPreviews[slot] = cam.Config().ShowPreview
	}
}

// Shutdown halts every camera, stops the workers, waits for pending uploads
// and releases the controllers.
func (r *Runner) Shutdown() {
	for _, cam := range r.allCameras() {
		cam.SetStatus(models.StatusHalted)
	}
	r.workers.Stop()
	r.uploads.Wait()

	for _, cam := range r.allCameras() {
		cam.teardown()
		cam.writeStatus()
	}
	log.Println("Runner: all cameras shut down")
}
