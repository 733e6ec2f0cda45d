package camera

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Simulated is a software camera for development machines and tests. It
// renders flat grey frames whose shade can be changed to fake motion and
// writes placeholder files for recordings.
type Simulated struct {
	slot    int
	sensorW int
	sensorH int

	mu        sync.Mutex
	started   bool
	closed    bool
	cfg       StreamConfig
	controls  map[string]any
	shade     uint8
	recording *os.File
}

func NewSimulated(slot, sensorW, sensorH int) *Simulated {
	return &Simulated{
		slot:     slot,
		sensorW:  sensorW,
		sensorH:  sensorH,
		controls: make(map[string]any),
		shade:    128,
		cfg: StreamConfig{
			ImageWidth:  1920,
			ImageHeight: 1080,
			VideoWidth:  1920,
			VideoHeight: 1080,
			BufferCount: 2,
			Quality:     85,
		},
	}
}

func (s *Simulated) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("camera %d: closed", s.slot)
	}
	s.started = true
	return nil
}

func (s *Simulated) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	return nil
}

func (s *Simulated) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Simulated) Configure(cfg StreamConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrBusy
	}
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		return fmt.Errorf("camera %d: invalid image size %dx%d", s.slot, cfg.ImageWidth, cfg.ImageHeight)
	}
	s.cfg = cfg
	return nil
}

// Config returns the active stream configuration.
func (s *Simulated) Config() StreamConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Simulated) SetControls(controls map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range controls {
		s.controls[k] = v
	}
	return nil
}

// Control returns the last value set for a control.
func (s *Simulated) Control(name string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.controls[name]
	return v, ok
}

// SetShade changes the grey level of subsequent frames.
func (s *Simulated) SetShade(shade uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shade = shade
}

func (s *Simulated) Capture(stream Stream) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}

	mainSize, loresSize := StreamSizes(s.cfg, s.sensorW, s.sensorH)
	size := mainSize
	if stream == Lores {
		size = loresSize
	}

	img := image.NewGray(image.Rect(0, 0, size.X, size.Y))
	for i := range img.Pix {
		img.Pix[i] = s.shade
	}
	// Mark the slot in the top left corner so stitched output is tellable apart.
	for x := 0; x < min(size.X, s.slot+1); x++ {
		img.SetGray(x, 0, color.Gray{Y: 255})
	}
	return img, nil
}

func (s *Simulated) StartRecording(path string, opts RecordOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.recording != nil {
		return ErrAlreadyRecording
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("camera %d: %w", s.slot, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("camera %d: %w", s.slot, err)
	}
	fmt.Fprintf(f, "simulated recording bitrate=%d fps=%d\n", opts.Bitrate, opts.FPS)
	s.recording = f
	log.Printf("Camera %d: recording to %s", s.slot, path)
	return nil
}

func (s *Simulated) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording == nil {
		return ErrNotRecording
	}
	err := s.recording.Close()
	s.recording = nil
	return err
}

func (s *Simulated) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording != nil
}

func (s *Simulated) SensorResolution() (int, int) {
	return s.sensorW, s.sensorH
}

func (s *Simulated) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording != nil {
		s.recording.Close()
		s.recording = nil
	}
	s.started = false
	s.closed = true
	return nil
}
