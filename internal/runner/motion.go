package runner

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/camera"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/config"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/media"
)

func (r *Runner) motionLoop(ctx context.Context) {
	var lastErr string
	for r.workerActive(ctx) {
		cam := r.Main()
		if cam.Flags().MotionDetection && cam.ctrl.Started() {
			if err := r.detectMotion(ctx, cam); err != nil {
				if err.Error() != lastErr {
					log.Printf("Runner: motion: %v", err)
				}
				lastErr = err.Error()
			} else {
				lastErr = ""
			}
		}
		if !sleepCtx(ctx, r.frameDelay()) {
			return
		}
	}
}

// detectMotion grabs one lores frame from cam and feeds the result into the
// start/stop frame counters.
func (r *Runner) detectMotion(ctx context.Context, cam *Camera) error {
	img, err := cam.ctrl.Capture(camera.Lores)
	if err != nil {
		return fmt.Errorf("camera %d: %w", cam.Slot, err)
	}
	cfg := cam.Config()

	cam.mu.Lock()
	prev := cam.motion.last
	cam.motion.last = img
	skip := cam.motion.skip > 0
	if skip {
		cam.motion.skip--
	}
	cam.mu.Unlock()

	if skip || (prev == nil && r.analyser == nil) {
		return nil
	}

	moving, err := r.frameHasMotion(ctx, cam, cfg, prev, img)
	if err != nil {
		return err
	}
	r.trackMotion(cam, cfg, moving)
	return nil
}

func (r *Runner) frameHasMotion(ctx context.Context, cam *Camera, cfg config.Camera, prev, img image.Image) (bool, error) {
	if r.analyser == nil {
		return media.MeanSquaredError(prev, img) > cfg.MotionThreshold, nil
	}
	frame, err := media.EncodeJPEG(img, cfg.PreviewQuality)
	if err != nil {
		return false, err
	}
	return r.analyser.Detect(ctx, frame, cam.Slot)
}

// trackMotion counts consecutive moving and still frames. Enough moving
// frames start an event, enough still frames end it. In internal mode an
// event is a recording; in monitor mode it is a pair of motion log lines.
func (r *Runner) trackMotion(cam *Camera, cfg config.Camera, moving bool) {
	cam.mu.Lock()
	m := &cam.motion
	var started, stopped bool
	if moving {
		m.active++
		m.still = 0
		if !m.detected && m.active >= max(cfg.MotionStartFrames, 1) {
			m.detected = true
			started = true
		}
	} else {
		m.still++
		m.active = 0
		if m.detected && m.still >= max(cfg.MotionStopFrames, 1) {
			m.detected = false
			stopped = true
		}
	}
	cam.mu.Unlock()

	switch {
	case started && cfg.MotionMode == config.MotionMonitor:
		cam.motionLogf("Motion start camera %d", cam.Slot)
	case started:
		cam.logf("Motion detected")
		if err := r.startRecording(cam); err != nil {
			log.Printf("Runner: camera %d motion recording: %v", cam.Slot, err)
		}
	case stopped && cfg.MotionMode == config.MotionMonitor:
		cam.motionLogf("Motion stop camera %d", cam.Slot)
	case stopped:
		cam.logf("Motion stopped")
		if err := r.stopRecording(cam); err != nil {
			log.Printf("Runner: camera %d motion recording: %v", cam.Slot, err)
		}
	}
}
