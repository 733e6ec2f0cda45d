package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/adjust"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/media"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
)

const (
	maxBitrate    = 25000000
	maxTLInterval = 864000
)

// handle runs one command that needs the camera running.
func (r *Runner) handle(cam *Camera, def protocol.Definition, param string) error {
	switch def.Class {
	case protocol.FullRestart:
		return r.fullRestart(cam, def.Code, param)
	case protocol.QuickRestart:
		return r.quickRestart(cam, param)
	}

	switch def.Code {
	case protocol.CodeImage:
		return r.captureStill(cam, media.KindImage)
	case protocol.CodeStitchedImage:
		return r.captureStitched(cam, param == "v")
	case "ca":
		return r.handleCapture(cam, param)
	case "md":
		return r.handleMotionDetection(cam, param)
	case "mx":
		return r.handleMotionMode(cam, param)
	case "mt", "ms", "mb", "me":
		return r.handleMotionValue(cam, def.Code, param)
	case "tl":
		return r.handleTimelapse(cam, param)
	case "tv":
		n, err := parseIntRange(param, 1, maxTLInterval)
		if err != nil {
			return err
		}
		cam.updateConfig(func(c *config.Camera) { c.TLInterval = n })
	case "bi":
		n, err := parseIntRange(param, 0, maxBitrate)
		if err != nil {
			return err
		}
		cam.updateConfig(func(c *config.Camera) { c.VideoBitrate = n })
	case "an":
		cam.updateConfig(func(c *config.Camera) { c.Annotation = param })
	case "sc":
		return cam.refreshCounters()
	case "cn":
		return r.handleMainCamera(param)
	case "dp":
		cam.updateConfig(func(c *config.Camera) { c.ShowPreview = param != "0" })
		r.syncPreviews()
	case "qu":
		n, err := parseInt(param)
		if err != nil {
			return err
		}
		q := max(1, min(100, n))
		cam.updateConfig(func(c *config.Camera) { c.ImageQuality = q })
		return cam.setControl(adjust.Quality, q)
	case "pv":
		return r.handlePreviewSettings(cam, param)
	default:
		return r.handleAdjustment(cam, def.Code, param)
	}
	return nil
}

func (r *Runner) handleCapture(cam *Camera, param string) error {
	if !strings.HasPrefix(param, "1") {
		cam.mu.Lock()
		cam.recordUntil = time.Time{}
		cam.mu.Unlock()
		return r.stopRecording(cam)
	}

	if err := r.startRecording(cam); err != nil {
		return err
	}
	// "1 <seconds>" limits the recording.
	if len(param) > 2 {
		if secs, err := strconv.Atoi(param[2:]); err == nil && secs > 0 {
			cam.mu.Lock()
			cam.recordUntil = r.now().Add(time.Duration(secs) * time.Second)
			cam.mu.Unlock()
		}
	}
	return nil
}

func (r *Runner) handleMotionDetection(cam *Camera, param string) error {
	on := param != "0" && param != ""
	cam.mu.Lock()
	cam.flags.MotionDetection = on
	cam.motion = motionState{skip: cam.cfg.MotionInitFrames}
	cam.mu.Unlock()

	if on {
		cam.logf("Internal motion detection started")
	} else {
		cam.logf("Internal motion detection stopped")
	}
	return nil
}

func (r *Runner) handleMotionMode(cam *Camera, param string) error {
	var mode string
	switch param {
	case "0":
		mode = config.MotionInternal
	case "2":
		mode = config.MotionMonitor
	default:
		return fmt.Errorf("%w: motion mode %q", ErrBadParam, param)
	}
	cam.updateConfig(func(c *config.Camera) { c.MotionMode = mode })
	if mode == config.MotionMonitor {
		cam.mu.Lock()
		l := cam.motionLog
		cam.mu.Unlock()
		return l.Ensure()
	}
	return nil
}

func (r *Runner) handleMotionValue(cam *Camera, code, param string) error {
	n, err := parseInt(param)
	if err != nil {
		return err
	}
	n = max(n, 0)
	cam.updateConfig(func(c *config.Camera) {
		switch code {
		case "mt":
			c.MotionThreshold = adjust.ScaleMotionThreshold(n)
		case "ms":
			c.MotionInitFrames = n
		case "mb":
			c.MotionStartFrames = n
		case "me":
			c.MotionStopFrames = n
		}
	})
	return nil
}

func (r *Runner) handleTimelapse(cam *Camera, param string) error {
	switch param {
	case "1":
		if err := cam.refreshCounters(); err != nil {
			return err
		}
		cam.mu.Lock()
		cam.flags.TimelapseOn = true
		cam.timelapseCount = 1
		cam.lastTimelapse = time.Time{}
		cam.mu.Unlock()
		cam.logf("Timelapse started")
	case "0":
		cam.mu.Lock()
		if cam.flags.TimelapseOn && cam.timelapseCount > 1 {
			cam.counters.Timelapse++
		}
		cam.flags.TimelapseOn = false
		cam.mu.Unlock()
		cam.logf("Timelapse stopped")
	default:
		cam.logf("Bad argument to tl: %q", param)
		return fmt.Errorf("%w: timelapse %q", ErrBadParam, param)
	}
	return nil
}

func (r *Runner) handleMainCamera(param string) error {
	slot, err := parseInt(param)
	if err != nil {
		return err
	}
	if _, ok := r.cameras[slot]; !ok {
		return fmt.Errorf("%w %d", ErrNoCamera, slot)
	}

	r.pauseWorkers()
	r.main.Store(int64(slot))
	r.resumeWorkers()
	return nil
}

// handlePreviewSettings applies "quality width divider [height]".
func (r *Runner) handlePreviewSettings(cam *Camera, param string) error {
	fields := strings.Fields(param)
	if len(fields) < 3 {
		return fmt.Errorf("%w: preview settings %q", ErrBadParam, param)
	}
	values, err := parseInts(fields)
	if err != nil {
		return err
	}
	if values[1] <= 0 || values[2] <= 0 {
		return fmt.Errorf("%w: preview settings %q", ErrBadParam, param)
	}

	height := adjust.PreviewHeight(values[1])
	if len(values) > 3 && values[3] > 0 {
		height = values[3]
	}
	cam.updateConfig(func(c *config.Camera) {
		c.PreviewQuality = max(1, min(100, values[0]))
		c.PreviewWidth = values[1]
		c.Divider = values[2]
		c.PreviewHeight = height
	})
	return nil
}

// handleAdjustment applies one live image control and keeps the
// configuration in step so restarts reapply it.
func (r *Runner) handleAdjustment(cam *Camera, code, param string) error {
	switch code {
	case "sh", "co", "br", "sa":
		v, err := strconv.ParseFloat(strings.TrimSpace(param), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrBadParam, param)
		}
		var name string
		var scaled float64
		switch code {
		case "sh":
			name, scaled = adjust.Sharpness, adjust.ScaleSharpness(v)
			cam.updateConfig(func(c *config.Camera) { c.Sharpness = scaled })
		case "co":
			name, scaled = adjust.Contrast, adjust.ScaleContrast(v)
			cam.updateConfig(func(c *config.Camera) { c.Contrast = scaled })
		case "br":
			name, scaled = adjust.Brightness, adjust.ScaleBrightness(v)
			cam.updateConfig(func(c *config.Camera) { c.Brightness = scaled })
		case "sa":
			name, scaled = adjust.Saturation, adjust.ScaleSaturation(v)
			cam.updateConfig(func(c *config.Camera) { c.Saturation = scaled })
		}
		return cam.setControl(name, scaled)

	case "ss":
		n, err := parseInt(param)
		if err != nil {
			return err
		}
		cam.updateConfig(func(c *config.Camera) { c.ExposureTime = n })
		return cam.setControl(adjust.ExposureTime, n)
	case "ec":
		n, err := parseInt(param)
		if err != nil {
			return err
		}
		v := adjust.ScaleExposureCompensation(n)
		cam.updateConfig(func(c *config.Camera) { c.ExposureCompensation = v })
		return cam.setControl(adjust.ExposureValue, v)
	case "is":
		n, err := parseInt(param)
		if err != nil {
			return err
		}
		v := adjust.ScaleISO(n)
		cam.updateConfig(func(c *config.Camera) { c.AnalogueGain = v })
		return cam.setControl(adjust.AnalogueGain, v)

	case "wb":
		mode, err := adjust.ParseAwbMode(param)
		if err != nil {
			return err
		}
		cam.updateConfig(func(c *config.Camera) { c.WhiteBalance = mode })
		return cam.setControl(adjust.AwbMode, mode)
	case "ag":
		red, blue, err := adjust.ParseColourGains(param)
		if err != nil {
			return err
		}
		cam.updateConfig(func(c *config.Camera) { c.ColourGainsRed, c.ColourGainsBlue = red, blue })
		return cam.setControl(adjust.ColourGains, [2]float64{red, blue})
	}
	return fmt.Errorf("%w %q", ErrUnknownCmd, code)
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadParam, s)
	}
	return n, nil
}

func parseIntRange(s string, lo, hi int) (int, error) {
	n, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %d outside %d..%d", ErrBadParam, n, lo, hi)
	}
	return n, nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := parseInt(f)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
