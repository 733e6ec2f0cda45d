package runner

import (
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/camera"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/queue"
)

var errFakeStart = errors.New("fake start failure")

// fakeController records every call so tests can check ordering.
type fakeController struct {
	mu        sync.Mutex
	calls     []string
	started   bool
	recording bool
	cfg       camera.StreamConfig
	controls  map[string]any
	shade     uint8
	failStart bool
	onStop    func()
}

func newFakeController() *fakeController {
	return &fakeController{controls: make(map[string]any), shade: 100}
}

func (f *fakeController) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start")
	if f.failStart {
		return errFakeStart
	}
	f.started = true
	return nil
}

func (f *fakeController) Stop() error {
	f.mu.Lock()
	hook := f.onStop
	f.record("stop")
	f.started = false
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeController) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

func (f *fakeController) Configure(cfg camera.StreamConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("configure")
	if f.started {
		return camera.ErrBusy
	}
	f.cfg = cfg
	return nil
}

func (f *fakeController) SetControls(controls map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range controls {
		f.controls[k] = v
	}
	return nil
}

func (f *fakeController) Capture(stream camera.Stream) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return nil, camera.ErrNotStarted
	}
	img := image.NewGray(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = f.shade
	}
	return img, nil
}

func (f *fakeController) StartRecording(path string, opts camera.RecordOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("record")
	if !f.started {
		return camera.ErrNotStarted
	}
	f.recording = true
	return os.WriteFile(path, []byte("video"), 0o644)
}

func (f *fakeController) StopRecording() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop-record")
	if !f.recording {
		return camera.ErrNotRecording
	}
	f.recording = false
	return nil
}

func (f *fakeController) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *fakeController) SensorResolution() (int, int) { return 64, 48 }

func (f *fakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close")
	f.started = false
	return nil
}

func (f *fakeController) control(name string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.controls[name]
	return v, ok
}

func (f *fakeController) setShade(v uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shade = v
}

func (f *fakeController) setFailStart(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStart = v
}

// writeCameraConfig writes a legacy settings file that keeps every path of
// the camera inside dir.
func writeCameraConfig(t *testing.T, dir string, extra ...string) string {
	t.Helper()
	lines := []string{
		"user_config " + filepath.Join(dir, "uconfig"),
		"log_file " + filepath.Join(dir, "schedule.log"),
		"log_size 5000",
		"status_file " + filepath.Join(dir, "status_mjpeg.txt"),
		"preview_path " + filepath.Join(dir, "preview", "cam.jpg"),
		"media_path " + filepath.Join(dir, "media"),
		"image_path " + filepath.Join(dir, "media", "im_%i.jpg"),
		"lapse_path " + filepath.Join(dir, "media", "tl_%t_%i.jpg"),
		"video_path " + filepath.Join(dir, "media", "vi_%v.mp4"),
		"motion_logfile " + filepath.Join(dir, "motion.log"),
		"width 16",
		"image_width 8",
		"image_height 6",
		"video_width 8",
		"video_height 6",
		"video_fps 100",
	}
	lines = append(lines, extra...)

	path := filepath.Join(dir, "raspimjpeg")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestCamera(t *testing.T, slot int, ctrl *fakeController, extra ...string) *Camera {
	t.Helper()
	cam, err := NewCamera(slot, ctrl, writeCameraConfig(t, t.TempDir(), extra...))
	if err != nil {
		t.Fatalf("NewCamera(%d) failed: %v", slot, err)
	}
	return cam
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRunner(t *testing.T, deps Deps, cams ...*Camera) (*Runner, *fakeClock) {
	t.Helper()
	r, err := New(cams, queue.New(10), deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)}
	r.now = clock.Now
	t.Cleanup(r.workers.Stop)
	return r, clock
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func settingLine(t *testing.T, cam *Camera, key string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(cam.Config().UserConfig)
	if err != nil {
		return "", false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, " "); ok && k == key {
			return v, true
		} else if line == key {
			return "", true
		}
	}
	return "", false
}

func mustSetting(t *testing.T, cam *Camera, key, want string) {
	t.Helper()
	got, ok := settingLine(t, cam, key)
	if !ok || got != want {
		t.Errorf("setting %s = (%q, %v), want %q", key, got, ok, want)
	}
}

func execSimple(t *testing.T, r *Runner, code, param string) bool {
	t.Helper()
	return r.executeOne(t.Context(), int(r.main.Load()), code, param)
}

func newQueue() *queue.Queue { return queue.New(10) }

func decodeJPEG(r io.Reader) (image.Image, error) { return jpeg.Decode(r) }

type fakeHistory struct {
	mu   sync.Mutex
	recs []models.DispatchRecord
}

func (h *fakeHistory) RecordAttempt(_ context.Context, rec models.DispatchRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return nil
}

func (h *fakeHistory) Records() []models.DispatchRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]models.DispatchRecord(nil), h.recs...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.StatusEvent
}

func (p *fakePublisher) SendStatus(e models.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) Events() []models.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.StatusEvent(nil), p.events...)
}

type fakeArchive struct {
	mu    sync.Mutex
	paths []string
}

func (a *fakeArchive) Upload(_ context.Context, _ int, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.paths = append(a.paths, path)
	return nil
}

func (a *fakeArchive) Paths() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.paths...)
}

type fakeAnalyser struct {
	moving bool
	calls  int
}

func (a *fakeAnalyser) Detect(_ context.Context, frame []byte, _ int) (bool, error) {
	a.calls++
	if len(frame) == 0 {
		return false, errors.New("empty frame")
	}
	return a.moving, nil
}
