package runner

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/adjust"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/camera"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/media"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/persist"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/status"
)

// Camera is the record the daemon keeps for one camera slot. The dispatcher
// is the main writer; workers and the HTTP API read through the accessors.
type Camera struct {
	Slot int

	ctrl       camera.Controller
	configFile string

	mu        sync.Mutex
	cfg       config.Camera
	settings  *persist.Settings
	flags     status.Flags
	explicit  models.CameraStatus
	published bool

	recordUntil time.Time
	videoPath   string

	counters       media.Counters
	timelapseCount int
	lastTimelapse  time.Time

	motion motionState

	log       *persist.Logfile
	motionLog *persist.Logfile
}

type motionState struct {
	detected bool
	active   int
	still    int
	skip     int
	last     image.Image
}

// NewCamera loads the settings of one camera, configures its controller and
// starts it when autostart is set.
func NewCamera(slot int, ctrl camera.Controller, configFile string) (*Camera, error) {
	cfg, err := config.LoadCamera(configFile)
	if err != nil {
		return nil, fmt.Errorf("camera %d: %w", slot, err)
	}

	c := &Camera{
		Slot:       slot,
		ctrl:       ctrl,
		configFile: configFile,
		cfg:        cfg,
	}
	if err := c.reload(false); err != nil {
		return nil, err
	}

	if err := ctrl.Configure(c.streamConfig()); err != nil {
		return nil, fmt.Errorf("camera %d: configure: %w", slot, err)
	}
	if err := ctrl.SetControls(c.controls()); err != nil {
		log.Printf("Runner: camera %d controls: %v", slot, err)
	}
	if cfg.Autostart {
		if err := ctrl.Start(); err != nil {
			return nil, fmt.Errorf("camera %d: start: %w", slot, err)
		}
		c.logf("Camera started")
	}
	return c, nil
}

// reload refreshes everything derived from the configuration: the settings
// writer, the log files, the media directories and the file counters. When
// fromDisk is set the configuration itself is re-read first.
func (c *Camera) reload(fromDisk bool) error {
	if fromDisk {
		cfg, err := config.LoadCamera(c.configFile)
		if err != nil {
			return fmt.Errorf("camera %d: %w", c.Slot, err)
		}
		c.mu.Lock()
		c.cfg = cfg
		c.mu.Unlock()
	}

	cfg := c.Config()
	settings, err := persist.ReadSettings(cfg.UserConfig)
	if err != nil {
		return fmt.Errorf("camera %d: user config: %w", c.Slot, err)
	}

	camLog := persist.NewCameraLog(cfg.LogFile, c.Slot, cfg.LogSize > 0)
	if cfg.LogSize > 0 {
		if err := camLog.Ensure(); err != nil {
			return fmt.Errorf("camera %d: log: %w", c.Slot, err)
		}
	}
	motionLog := persist.NewMotionLog(cfg.MotionLogFile)
	if cfg.MotionMode == config.MotionMonitor {
		if err := motionLog.Ensure(); err != nil {
			return fmt.Errorf("camera %d: motion log: %w", c.Slot, err)
		}
	}

	for _, dir := range mediaDirs(cfg) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("camera %d: %w", c.Slot, err)
		}
	}

	c.mu.Lock()
	c.settings = settings
	c.log = camLog
	c.motionLog = motionLog
	c.mu.Unlock()

	return c.refreshCounters()
}

func mediaDirs(cfg config.Camera) []string {
	return []string{
		cfg.MediaPath,
		filepath.Dir(cfg.ImageOutputPath),
		filepath.Dir(cfg.LapseOutputPath),
		filepath.Dir(cfg.VideoOutputPath),
		filepath.Dir(cfg.PreviewPath),
	}
}

func (c *Camera) refreshCounters() error {
	cfg := c.Config()
	counters, err := media.ScanCounters(mediaDirs(cfg)[:4]...)
	if err != nil {
		return fmt.Errorf("camera %d: counters: %w", c.Slot, err)
	}
	c.mu.Lock()
	c.counters = counters
	c.mu.Unlock()
	return nil
}

// Config returns a copy of the camera configuration.
func (c *Camera) Config() config.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *Camera) updateConfig(fn func(cfg *config.Camera)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.cfg)
}

func (c *Camera) Flags() status.Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

func (c *Camera) updateFlags(fn func(f *status.Flags)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.flags)
}

// Status derives the published status of the camera.
func (c *Camera) Status() models.CameraStatus {
	c.mu.Lock()
	explicit, flags := c.explicit, c.flags
	c.mu.Unlock()
	return status.Derive(explicit, flags, c.ctrl.Started())
}

// SetStatus records an explicit status. Error statuses are sticky until the
// next explicit call, halted holds until cleared, a custom label is only
// adopted while nothing has been published yet, and a derived label or an
// empty string hands the status back to the flags.
func (c *Camera) SetStatus(s models.CameraStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case s.IsError(), s == models.StatusHalted:
		c.explicit = s
	case s != "" && !s.IsDerived():
		if !c.published {
			c.explicit = s
		}
	default:
		c.explicit = ""
	}
}

// clearHalted drops a halted status set for a pause. Errors are kept.
func (c *Camera) clearHalted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.explicit == models.StatusHalted {
		c.explicit = ""
	}
}

// refusing reports whether the camera must reject ordinary commands.
func (c *Camera) refusing() bool {
	st := c.Status()
	return st == models.StatusHalted || st.IsError()
}

// writeStatus writes the derived status to the camera's status file.
func (c *Camera) writeStatus() models.CameraStatus {
	st := c.Status()
	if err := persist.WriteStatus(c.Config().StatusFile, string(st)); err != nil {
		log.Printf("Runner: camera %d status file: %v", c.Slot, err)
	}
	c.mu.Lock()
	c.published = true
	c.mu.Unlock()
	return st
}

func (c *Camera) logf(format string, args ...any) {
	c.mu.Lock()
	l := c.log
	c.mu.Unlock()
	if err := l.Printf(format, args...); err != nil {
		log.Printf("Runner: camera %d log: %v", c.Slot, err)
	}
}

func (c *Camera) motionLogf(format string, args ...any) {
	c.mu.Lock()
	l := c.motionLog
	c.mu.Unlock()
	if err := l.Printf(format, args...); err != nil {
		log.Printf("Runner: camera %d motion log: %v", c.Slot, err)
	}
}

func (c *Camera) streamConfig() camera.StreamConfig {
	cfg := c.Config()
	return camera.StreamConfig{
		ImageWidth:   cfg.ImageWidth,
		ImageHeight:  cfg.ImageHeight,
		VideoWidth:   cfg.VideoWidth,
		VideoHeight:  cfg.VideoHeight,
		SensorWidth:  cfg.SensorWidth,
		SensorHeight: cfg.SensorHeight,
		BufferCount:  cfg.BufferCount,
		SoloStream:   cfg.SoloStream,
		HFlip:        cfg.HFlip,
		VFlip:        cfg.VFlip,
		Quality:      cfg.ImageQuality,
	}
}

// controls is the full set of live adjustments from the configuration.
func (c *Camera) controls() map[string]any {
	cfg := c.Config()
	controls := map[string]any{
		adjust.Sharpness:     cfg.Sharpness,
		adjust.Contrast:      cfg.Contrast,
		adjust.Brightness:    cfg.Brightness,
		adjust.Saturation:    cfg.Saturation,
		adjust.AnalogueGain:  cfg.AnalogueGain,
		adjust.ExposureValue: cfg.ExposureCompensation,
		adjust.AwbMode:       cfg.WhiteBalance,
		adjust.FrameRate:     float64(cfg.VideoFPS),
	}
	if cfg.ExposureTime > 0 {
		controls[adjust.ExposureTime] = cfg.ExposureTime
	}
	if cfg.ColourGainsRed > 0 || cfg.ColourGainsBlue > 0 {
		controls[adjust.ColourGains] = [2]float64{cfg.ColourGainsRed, cfg.ColourGainsBlue}
	}
	return controls
}

func (c *Camera) setControl(name string, value any) error {
	if err := c.ctrl.SetControls(map[string]any{name: value}); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// restart stops the controller, optionally re-reads the configuration,
// applies it and starts again. A successful restart leaves the camera ready.
func (c *Camera) restart(fromDisk bool) error {
	if err := c.ctrl.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if fromDisk {
		if err := c.reload(true); err != nil {
			return err
		}
	}
	if err := c.ctrl.Configure(c.streamConfig()); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := c.ctrl.SetControls(c.controls()); err != nil {
		return fmt.Errorf("controls: %w", err)
	}
	if err := c.ctrl.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	c.mu.Lock()
	c.explicit = ""
	c.motion = motionState{skip: c.cfg.MotionInitFrames}
	c.mu.Unlock()
	return nil
}

// stopAll stops recording and the controller and clears every activity flag.
func (c *Camera) stopAll() {
	if c.ctrl.Recording() {
		if err := c.ctrl.StopRecording(); err != nil {
			log.Printf("Runner: camera %d stop recording: %v", c.Slot, err)
		}
	}
	if err := c.ctrl.Stop(); err != nil {
		log.Printf("Runner: camera %d stop: %v", c.Slot, err)
	}

	c.mu.Lock()
	c.flags = status.Flags{}
	c.videoPath = ""
	c.recordUntil = time.Time{}
	c.motion = motionState{}
	c.mu.Unlock()
}

// teardown releases the controller and removes the preview files.
func (c *Camera) teardown() {
	c.stopAll()
	if err := c.ctrl.Close(); err != nil {
		log.Printf("Runner: camera %d close: %v", c.Slot, err)
	}
	preview := c.Config().PreviewPath
	persist.Remove(preview, partPath(preview))
	c.logf("Shut down camera instance for camera %d", c.Slot)
}

// Close stops the camera and releases its controller.
func (c *Camera) Close() error {
	c.stopAll()
	return c.ctrl.Close()
}

func partPath(path string) string {
	return path + ".part.jpg"
}

// State returns a snapshot of the camera for the HTTP API.
func (c *Camera) State(main bool) models.CameraState {
	st := c.Status()
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CameraState{
		Slot:        c.Slot,
		Status:      st,
		Main:        main,
		ShowPreview: c.cfg.ShowPreview,
		RecordUntil: c.recordUntil,
		MotionMode:  c.cfg.MotionMode,
	}
}
