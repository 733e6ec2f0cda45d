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

func (r *Runner) previewLoop(ctx context.Context) {
	var lastErr string
	for r.workerActive(ctx) {
		if err := r.generatePreview(); err != nil {
			if err.Error() != lastErr {
				log.Printf("Runner: preview: %v", err)
			}
			lastErr = err.Error()
		} else {
			lastErr = ""
		}
		if !sleepCtx(ctx, r.frameDelay()) {
			return
		}
	}
}

// generatePreview composites the lores frames of every camera with the
// preview enabled, left to right, and replaces the preview image.
func (r *Runner) generatePreview() error {
	r.previewMu.Lock()
	defer r.previewMu.Unlock()

	var frames []image.Image
	for _, slot := range r.slots {
		if !r.showPreviews[slot] {
			continue
		}
		cam := r.cameras[slot]
		if !cam.ctrl.Started() {
			continue
		}
		img, err := cam.ctrl.Capture(camera.Lores)
		if err != nil {
			return fmt.Errorf("camera %d: %w", slot, err)
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil
	}

	cfg := r.Main().Config()
	img := media.Resize(media.Stitch(frames, false), previewSize(cfg, len(frames)))
	return media.SaveJPEG(cfg.PreviewPath, img, cfg.PreviewQuality)
}

func previewSize(cfg config.Camera, n int) image.Point {
	return image.Pt(max(cfg.PreviewWidth, 1)*max(n, 1), max(cfg.PreviewHeight, 1))
}
