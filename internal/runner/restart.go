package runner

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/adjust"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/media"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
)

// controllerFailed leaves cam in a sticky error state. The workers stay
// paused until a run command restarts everything.
func (r *Runner) controllerFailed(cam *Camera, err error) error {
	cam.SetStatus(models.CameraStatus(fmt.Sprintf("%s: camera %d: %v", models.ErrorMarker, cam.Slot, err)))
	cam.logf("Camera restart failed: %v", err)
	return fmt.Errorf("camera %d restart: %w", cam.Slot, err)
}

// runAll handles ru: "0..." stops every camera, anything else restarts every
// camera from its settings files and brings the workers back.
func (r *Runner) runAll(param string) error {
	r.pauseWorkers()

	if strings.HasPrefix(param, "0") {
		for _, cam := range r.allCameras() {
			cam.stopAll()
			cam.logf("Camera stopped")
		}
		return nil
	}

	var errs []error
	for _, cam := range r.allCameras() {
		if err := cam.restart(true); err != nil {
			errs = append(errs, r.controllerFailed(cam, err))
			continue
		}
		cam.logf("Camera started")
	}
	r.syncPreviews()
	r.resumeWorkers()
	return errors.Join(errs...)
}

// quickRestart handles fl: the stream is stopped, the flip applied and the
// stream started again. A running recording is left alone.
func (r *Runner) quickRestart(cam *Camera, param string) error {
	r.pauseWorkers()

	hflip, vflip := adjust.ParseFlip(param)
	cam.updateConfig(func(c *config.Camera) { c.HFlip, c.VFlip = hflip, vflip })

	if err := cam.restart(false); err != nil {
		return r.controllerFailed(cam, err)
	}
	r.resumeWorkers()
	return nil
}

// fullRestart handles the commands that need the whole pipeline down:
// workers paused, recording and controller stopped, configuration changed,
// controller restarted, previews resynced, workers resumed.
func (r *Runner) fullRestart(cam *Camera, code, param string) error {
	r.pauseWorkers()

	var cmdErr error
	switch code {
	case protocol.CodeMaxResImage:
		cam.stopAll()
		if err := r.captureMaxRes([]*Camera{cam}, cam, false); err != nil {
			return err
		}
	case protocol.CodeMaxResStitched:
		cams := r.allCameras()
		for _, c := range cams {
			c.stopAll()
		}
		if err := r.captureMaxRes(cams, cam, param == "v"); err != nil {
			return err
		}
	default:
		cam.stopAll()
		cmdErr = r.applyStreamSetting(cam, code, param)
		if err := cam.restart(false); err != nil {
			return r.controllerFailed(cam, err)
		}
	}

	r.syncPreviews()
	r.resumeWorkers()
	return cmdErr
}

// applyStreamSetting changes the configuration for one full restart command.
// The controller is stopped.
func (r *Runner) applyStreamSetting(cam *Camera, code, param string) error {
	switch code {
	case "px":
		values, err := parseInts(strings.Fields(param))
		if err != nil {
			return err
		}
		if len(values) < 6 || slices.ContainsFunc(values[:6], func(v int) bool { return v <= 0 }) {
			return fmt.Errorf("%w: px wants 6 positive values, got %q", ErrBadParam, param)
		}
		cam.updateConfig(func(c *config.Camera) {
			c.VideoWidth, c.VideoHeight = values[0], values[1]
			c.VideoFPS, c.MP4FPS = values[2], values[3]
			c.ImageWidth, c.ImageHeight = values[4], values[5]
		})

	case "cr":
		values, err := parseInts(strings.Fields(param))
		if err != nil {
			return err
		}
		if len(values) < 2 || values[0] <= 0 || values[1] <= 0 {
			return fmt.Errorf("%w: cr wants width and height, got %q", ErrBadParam, param)
		}
		cam.updateConfig(func(c *config.Camera) { c.SensorWidth, c.SensorHeight = values[0], values[1] })

	case "cs":
		return r.applyStreamSizes(cam, param)

	case "1s":
		switch param {
		case "1":
			cam.updateConfig(func(c *config.Camera) {
				c.SoloStream, c.BufferCount, c.ShowPreview = true, 1, false
			})
		case "2":
			w, h := cam.ctrl.SensorResolution()
			cam.updateConfig(func(c *config.Camera) {
				c.SensorWidth, c.SensorHeight = w, h
				c.SoloStream, c.BufferCount, c.ShowPreview = true, 1, false
			})
		default:
			cam.updateConfig(func(c *config.Camera) { c.SoloStream = false })
		}

	case "rs":
		return r.resetSettings(cam)

	default:
		return fmt.Errorf("%w %q", ErrUnknownCmd, code)
	}
	return nil
}

// applyStreamSizes handles "cs i|v|i+v|v+i w h [w2 h2]". "=" stands for the
// sensor size.
func (r *Runner) applyStreamSizes(cam *Camera, param string) error {
	fields := strings.Fields(param)
	if len(fields) < 3 {
		return fmt.Errorf("%w: cs %q", ErrBadParam, param)
	}

	sensor := cam.Config()
	size := func(w, h string) (int, int, error) {
		values := []int{sensor.SensorWidth, sensor.SensorHeight}
		if w != "=" && h != "=" {
			var err error
			if values, err = parseInts([]string{w, h}); err != nil {
				return 0, 0, err
			}
		}
		if values[0] <= 0 || values[1] <= 0 {
			return 0, 0, fmt.Errorf("%w: cs size %dx%d", ErrBadParam, values[0], values[1])
		}
		return values[0], values[1], nil
	}

	w, h, err := size(fields[1], fields[2])
	if err != nil {
		return err
	}
	w2, h2 := w, h
	if len(fields) >= 5 {
		if w2, h2, err = size(fields[3], fields[4]); err != nil {
			return err
		}
	}

	switch fields[0] {
	case "i":
		cam.updateConfig(func(c *config.Camera) { c.ImageWidth, c.ImageHeight = w, h })
	case "v":
		cam.updateConfig(func(c *config.Camera) { c.VideoWidth, c.VideoHeight = w, h })
	case "i+v":
		cam.updateConfig(func(c *config.Camera) {
			c.ImageWidth, c.ImageHeight = w, h
			c.VideoWidth, c.VideoHeight = w2, h2
		})
	case "v+i":
		cam.updateConfig(func(c *config.Camera) {
			c.VideoWidth, c.VideoHeight = w, h
			c.ImageWidth, c.ImageHeight = w2, h2
		})
	default:
		return fmt.Errorf("%w: cs target %q", ErrBadParam, fields[0])
	}
	return nil
}

// resetSettings backs the user config up to .bak, replaces it with the
// camera's default config file and reloads everything from disk.
func (r *Runner) resetSettings(cam *Camera) error {
	user := cam.Config().UserConfig
	if err := copyFile(user, user+".bak"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("backup user config: %w", err)
	}

	if cam.configFile == "" {
		if err := os.WriteFile(user, nil, 0o644); err != nil {
			return fmt.Errorf("reset user config: %w", err)
		}
	} else if err := copyFile(cam.configFile, user); err != nil {
		return fmt.Errorf("reset user config: %w", err)
	}

	if err := cam.reload(true); err != nil {
		return err
	}
	cam.logf("Settings reset to %s", cam.configFile)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// captureMaxRes switches cams to the full sensor size with a single buffer
// in solo stream mode, captures one still (stitched when there is more than
// one camera) into target's media, then puts every camera back.
func (r *Runner) captureMaxRes(cams []*Camera, target *Camera, vertical bool) error {
	saved := make(map[int]config.Camera, len(cams))
	for _, cam := range cams {
		cfg := cam.Config()
		saved[cam.Slot] = cfg
		w, h := cam.ctrl.SensorResolution()
		cam.updateConfig(func(c *config.Camera) {
			c.ImageWidth, c.ImageHeight = w, h
			c.SensorWidth, c.SensorHeight = w, h
			c.BufferCount = 1
			c.SoloStream = true
		})
		if err := cam.restart(false); err != nil {
			return r.controllerFailed(cam, err)
		}
	}

	var captureErr error
	if len(cams) == 1 {
		captureErr = r.captureStill(target, media.KindImage)
	} else {
		captureErr = r.captureStitched(target, vertical)
	}

	for _, cam := range cams {
		if err := cam.ctrl.Stop(); err != nil {
			log.Printf("Runner: camera %d stop: %v", cam.Slot, err)
		}
		prev := saved[cam.Slot]
		cam.updateConfig(func(c *config.Camera) {
			c.ImageWidth, c.ImageHeight = prev.ImageWidth, prev.ImageHeight
			c.SensorWidth, c.SensorHeight = prev.SensorWidth, prev.SensorHeight
			c.BufferCount = prev.BufferCount
			c.SoloStream = prev.SoloStream
		})
		if err := cam.restart(false); err != nil {
			return r.controllerFailed(cam, err)
		}
	}
	return captureErr
}
