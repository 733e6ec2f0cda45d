package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/adjust"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/persist"
)

// Motion detection modes.
const (
	MotionInternal = "internal"
	MotionMonitor  = "monitor"
)

// Camera is the per-camera configuration, built from the hardcoded defaults,
// then the camera's config file, then its user config file.
type Camera struct {
	Annotation   string
	UserAnnotate string

	Sharpness            float64
	Contrast             float64
	Brightness           float64
	Saturation           float64
	AnalogueGain         float64
	ExposureCompensation float64
	ExposureTime         int
	WhiteBalance         string
	ColourGainsRed       float64
	ColourGainsBlue      float64
	Rotation             int
	HFlip                bool
	VFlip                bool

	PreviewWidth   int
	PreviewHeight  int
	PreviewPath    string
	Divider        int
	PreviewQuality int
	ShowPreview    bool

	ImageOutputPath string
	LapseOutputPath string
	VideoOutputPath string
	MediaPath       string
	StatusFile      string
	ControlFile     string
	FIFOInterval    time.Duration

	VideoWidth   int
	VideoHeight  int
	VideoFPS     int
	VideoBitrate int
	MP4FPS       int
	ImageWidth   int
	ImageHeight  int
	ImageQuality int

	MotionMode        string
	MotionThreshold   float64
	MotionInitFrames  int
	MotionStartFrames int
	MotionStopFrames  int
	MotionDetection   bool

	ThumbGen      string
	Autostart     bool
	UserConfig    string
	LogFile       string
	LogSize       int
	MotionLogFile string

	BufferCount  int
	SoloStream   bool
	SensorWidth  int
	SensorHeight int
	TLInterval   int
}

// DefaultCamera returns the built-in defaults.
func DefaultCamera() Camera {
	return Camera{
		Annotation:      "RPi Cam %Y.%M.%D_%h:%m:%s",
		UserAnnotate:    "/dev/shm/mjpeg/user_annotate.txt",
		Sharpness:       1,
		Contrast:        1,
		Saturation:      1,
		AnalogueGain:    7,
		WhiteBalance:    "auto",
		PreviewWidth:    512,
		PreviewHeight:   288,
		PreviewPath:     "/tmp/preview/cam_preview.jpg",
		Divider:         1,
		PreviewQuality:  50,
		ShowPreview:     true,
		ImageOutputPath: "/tmp/media/im_cam%I_%i_%Y%M%D_%h%m%s.jpg",
		LapseOutputPath: "/tmp/media/tl_cam%I_%t_%i_%Y%M%D_%h%m%s.jpg",
		VideoOutputPath: "/tmp/media/vi_cam%I_%v_%Y%M%D_%h%m%s.mp4",
		MediaPath:       "/tmp/media",
		StatusFile:      "/tmp/status_mjpeg.txt",
		ControlFile:     "/tmp/FIFO",
		VideoWidth:      1920,
		VideoHeight:     1080,
		VideoFPS:        30,
		VideoBitrate:    17000000,
		MP4FPS:          30,
		ImageWidth:      1920,
		ImageHeight:     1080,
		ImageQuality:    85,
		MotionMode:      MotionInternal,
		MotionThreshold: 7,

		MotionStartFrames: 3,
		MotionStopFrames:  50,

		ThumbGen:      "vit",
		Autostart:     true,
		UserConfig:    "/tmp/uconfig",
		LogFile:       "/tmp/scheduleLog.txt",
		LogSize:       5000,
		MotionLogFile: "/tmp/motionLog.txt",
		BufferCount:   2,
		SensorWidth:   1920,
		SensorHeight:  1080,
		TLInterval:    30,
	}
}

// LoadCamera builds a camera configuration from configFile (may be empty)
// and then from the user config file that configFile points to.
func LoadCamera(configFile string) (Camera, error) {
	c := DefaultCamera()

	if configFile != "" {
		s, err := persist.ReadSettings(configFile)
		if err != nil {
			return c, err
		}
		c.ApplySettings(s)
	}

	s, err := persist.ReadSettings(c.UserConfig)
	if err != nil {
		return c, err
	}
	c.ApplySettings(s)

	if c.SoloStream {
		c.ShowPreview = false
	}
	return c, nil
}

// ApplySettings applies every key of s in file order. Keys that fail to
// parse are logged and skipped.
func (c *Camera) ApplySettings(s *persist.Settings) {
	for _, key := range s.Keys() {
		value, _ := s.Get(key)
		if err := c.Apply(key, value); err != nil {
			log.Printf("Config: %s: %v", s.Path(), err)
		}
	}
	// An explicit preview height wins over the 16:9 default wherever it appears.
	if h, ok := s.Get("height"); ok {
		_ = c.Apply("height", h)
	}
}

// Apply sets one legacy setting. Values are given in legacy units and
// converted to control units. Unknown keys are ignored.
func (c *Camera) Apply(key, value string) error {
	prev := *c
	var err error
	atoi := func(s string) int {
		var n int
		if err == nil {
			n, err = strconv.Atoi(strings.TrimSpace(s))
		}
		return n
	}
	atof := func(s string) float64 {
		var f float64
		if err == nil {
			f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		}
		return f
	}
	truthy := strings.EqualFold(value, "true")

	switch key {
	case "annotation":
		c.Annotation = value
	case "user_annotate":
		c.UserAnnotate = value
	case "sharpness":
		c.Sharpness = adjust.ScaleSharpness(atof(value))
	case "contrast":
		c.Contrast = adjust.ScaleContrast(atof(value))
	case "brightness":
		c.Brightness = adjust.ScaleBrightness(atof(value))
	case "saturation":
		c.Saturation = adjust.ScaleSaturation(atof(value))
	case "exposure_compensation":
		c.ExposureCompensation = adjust.ScaleExposureCompensation(atoi(value))
	case "iso":
		c.AnalogueGain = adjust.ScaleISO(atoi(value))
	case "white_balance":
		if mode, werr := adjust.ParseAwbMode(value); werr == nil {
			c.WhiteBalance = mode
		}
	case "autowbgain_r":
		c.ColourGainsRed = atof(value) / 100
	case "autowbgain_b":
		c.ColourGainsBlue = atof(value) / 100
	case "rotation":
		if r := atoi(value) % 360; r%90 == 0 {
			c.Rotation = r
		}
	case "hflip":
		c.HFlip = truthy
	case "vflip":
		c.VFlip = truthy
	case "shutter_speed":
		c.ExposureTime = atoi(value)

	case "status_file":
		if value != "" {
			c.StatusFile = value
		}
	case "control_file":
		if value != "" {
			c.ControlFile = value
		}
	case "fifo_interval":
		c.FIFOInterval = time.Duration(atoi(value)) * time.Microsecond

	case "preview_path":
		c.PreviewPath = value
	case "media_path":
		c.MediaPath = value
	case "image_path":
		c.ImageOutputPath = value
	case "lapse_path":
		c.LapseOutputPath = value
	case "video_path":
		c.VideoOutputPath = value

	case "width":
		c.PreviewWidth = atoi(value)
		c.PreviewHeight = adjust.PreviewHeight(c.PreviewWidth)
	case "height":
		c.PreviewHeight = atoi(value)
	case "quality":
		c.PreviewQuality = atoi(value)
	case "divider":
		c.Divider = atoi(value)
	case "video_width":
		c.VideoWidth = atoi(value)
	case "video_height":
		c.VideoHeight = atoi(value)
	case "video_fps":
		c.VideoFPS = atoi(value)
	case "video_bitrate":
		c.VideoBitrate = atoi(value)
	case "MP4Box_fps":
		c.MP4FPS = atoi(value)
	case "image_width":
		c.ImageWidth = atoi(value)
	case "image_height":
		c.ImageHeight = atoi(value)
	case "image_quality":
		c.ImageQuality = atoi(value)

	case "motion_external":
		// 0 internal, 1 external (not supported), 2 monitor.
		c.MotionMode = MotionInternal
		if value == "2" {
			c.MotionMode = MotionMonitor
		}
	case "motion_threshold":
		c.MotionThreshold = adjust.ScaleMotionThreshold(atoi(value))
	case "motion_initframes":
		c.MotionInitFrames = atoi(value)
	case "motion_startframes":
		c.MotionStartFrames = atoi(value)
	case "motion_stopframes":
		c.MotionStopFrames = atoi(value)
	case "motion_detection":
		if truthy {
			c.MotionDetection = true
		}

	case "thumb_gen":
		c.ThumbGen = value
	case "autostart":
		c.Autostart = value == "standard"
	case "user_config":
		if value != "" {
			c.UserConfig = value
		}
	case "log_file":
		if value != "" {
			c.LogFile = value
		}
	case "log_size":
		c.LogSize = atoi(value)
	case "motion_logfile":
		if value != "" {
			c.MotionLogFile = value
		}

	case "show_preview":
		if strings.EqualFold(value, "false") {
			c.ShowPreview = false
		}
	case "picam_buffer_count":
		c.BufferCount = atoi(value)
	case "camera_resolution":
		fields := strings.Fields(value)
		if len(fields) < 2 {
			return fmt.Errorf("%s: want \"width height\", got %q", key, value)
		}
		c.SensorWidth, c.SensorHeight = atoi(fields[0]), atoi(fields[1])
	case "solo_stream_mode":
		c.SoloStream = truthy
	case "tl_interval":
		c.TLInterval = atoi(value)
	}

	if err != nil {
		*c = prev
		return fmt.Errorf("%s %q: %w", key, value, err)
	}
	return nil
}
