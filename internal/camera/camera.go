// Package camera defines the hardware collaborator the daemon drives. The
// orchestration layer only ever talks to a Controller; real drivers and the
// simulated one live behind it.
package camera

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrNotStarted       = errors.New("camera not started")
	ErrBusy             = errors.New("camera must be stopped to reconfigure")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrUnknownDriver    = errors.New("unknown camera driver")
)

// Stream selects which configured output a capture reads from.
type Stream int

const (
	// Main is the full-size still stream.
	Main Stream = iota
	// Lores is the preview/video stream. In solo stream mode it is the main stream.
	Lores
)

// StreamConfig is everything that needs the controller stopped to change.
type StreamConfig struct {
	ImageWidth   int
	ImageHeight  int
	VideoWidth   int
	VideoHeight  int
	SensorWidth  int
	SensorHeight int
	BufferCount  int
	SoloStream   bool
	HFlip        bool
	VFlip        bool
	Quality      int
}

// RecordOptions configure the video encoder for one recording.
type RecordOptions struct {
	Bitrate int
	FPS     int
}

// Controller owns one physical camera.
type Controller interface {
	Start() error
	Stop() error
	Started() bool

	// Configure applies cfg. The controller must be stopped.
	Configure(cfg StreamConfig) error
	// SetControls applies live image adjustments keyed by control name.
	SetControls(controls map[string]any) error

	Capture(stream Stream) (image.Image, error)

	StartRecording(path string, opts RecordOptions) error
	StopRecording() error
	Recording() bool

	SensorResolution() (width, height int)
	Close() error
}

// Open creates a controller for the camera in slot using the named driver.
func Open(driver string, slot int) (Controller, error) {
	switch driver {
	case "", "simulated":
		return NewSimulated(slot, 4056, 3040), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

// StreamSizes returns the main and lores sizes a configuration yields once
// clamped to the sensor: main never exceeds the sensor and lores never
// exceeds main.
func StreamSizes(cfg StreamConfig, sensorW, sensorH int) (mainSize, loresSize image.Point) {
	mainSize = image.Pt(min(cfg.ImageWidth, sensorW), min(cfg.ImageHeight, sensorH))
	loresSize = image.Pt(min(cfg.VideoWidth, mainSize.X), min(cfg.VideoHeight, mainSize.Y))
	if cfg.SoloStream {
		loresSize = mainSize
	}
	return mainSize, loresSize
}
