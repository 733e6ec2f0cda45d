package runner

import (
	"context"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/camera"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/media"
	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/status"
)

// captureStill takes a full size still from cam and saves it.
func (r *Runner) captureStill(cam *Camera, kind byte) error {
	cam.updateFlags(func(f *status.Flags) { f.CapturingStill = true })
	defer cam.updateFlags(func(f *status.Flags) { f.CapturingStill = false })

	img, err := cam.ctrl.Capture(camera.Main)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	return r.saveStill(cam, img, kind)
}

// captureStitched takes a still from every camera and saves them as one
// image under the name of target.
func (r *Runner) captureStitched(target *Camera, vertical bool) error {
	cams := r.allCameras()
	for _, cam := range cams {
		cam.updateFlags(func(f *status.Flags) { f.CapturingStill = true })
	}
	defer func() {
		for _, cam := range cams {
			cam.updateFlags(func(f *status.Flags) { f.CapturingStill = false })
		}
	}()

	frames := make([]image.Image, 0, len(cams))
	for _, cam := range cams {
		img, err := cam.ctrl.Capture(camera.Main)
		if err != nil {
			return fmt.Errorf("camera %d capture: %w", cam.Slot, err)
		}
		frames = append(frames, img)
	}
	return r.saveStill(target, media.Stitch(frames, vertical), media.KindImage)
}

func (r *Runner) saveStill(cam *Camera, img image.Image, kind byte) error {
	cfg := cam.Config()
	template := cfg.ImageOutputPath
	if kind == media.KindTimelapse {
		template = cfg.LapseOutputPath
	}

	path := media.MakeFilename(template, r.nameVars(cam))
	if err := media.SaveJPEG(path, img, cfg.ImageQuality); err != nil {
		return fmt.Errorf("save still: %w", err)
	}
	cam.logf("Capturing image %s", path)

	if kind == media.KindTimelapse {
		// One thumbnail per sequence; the sequence index moves on when
		// the timelapse is switched off.
		if cam.nextTimelapseFrame() == 1 {
			r.writeThumbnail(cam, path, kind, cam.counter(kind))
		}
		cam.mu.Lock()
		cam.counters.Image++
		cam.mu.Unlock()
	} else {
		r.thumbnail(cam, path, kind)
	}

	r.archiveFile(cam, path)
	return nil
}

func (r *Runner) nameVars(cam *Camera) media.NameVars {
	cam.mu.Lock()
	defer cam.mu.Unlock()
	return media.NameVars{
		Now:        r.now(),
		Counters:   cam.counters,
		Slot:       cam.Slot,
		Annotation: cam.cfg.Annotation,
	}
}

// thumbnail advances the counter of kind and copies the current preview
// next to file in the media directory.
func (r *Runner) thumbnail(cam *Camera, file string, kind byte) {
	cam.mu.Lock()
	count := cam.counters.Next(kind)
	cam.mu.Unlock()
	r.writeThumbnail(cam, file, kind, count)
}

// writeThumbnail is a no-op for types missing from thumb_gen.
func (r *Runner) writeThumbnail(cam *Camera, file string, kind byte, count int) {
	cfg := cam.Config()
	if !strings.ContainsRune(cfg.ThumbGen, rune(kind)) {
		return
	}
	thumb := media.ThumbnailPath(filepath.Join(cfg.MediaPath, filepath.Base(file)), kind, count)
	if err := media.MakeThumbnail(cfg.PreviewPath, thumb, previewSize(cfg, 1)); err != nil {
		log.Printf("Runner: camera %d thumbnail: %v", cam.Slot, err)
	}
}

// counter returns the current counter of kind without advancing it.
func (c *Camera) counter(kind byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	peek := c.counters
	return peek.Next(kind)
}

// nextTimelapseFrame returns the position of the frame being taken within
// the current sequence.
func (c *Camera) nextTimelapseFrame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.timelapseCount
	c.timelapseCount++
	return n
}

// startRecording starts a video on cam.
func (r *Runner) startRecording(cam *Camera) error {
	if cam.Flags().CapturingVideo {
		cam.logf("Already capturing. Ignore")
		return camera.ErrAlreadyRecording
	}

	cfg := cam.Config()
	path := media.MakeFilename(cfg.VideoOutputPath, r.nameVars(cam))
	r.thumbnail(cam, path, media.KindVideo)

	if err := cam.ctrl.StartRecording(path, camera.RecordOptions{
		Bitrate: cfg.VideoBitrate,
		FPS:     cfg.MP4FPS,
	}); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	cam.mu.Lock()
	cam.flags.CapturingVideo = true
	cam.videoPath = path
	cam.mu.Unlock()
	cam.logf("Capturing started")
	return nil
}

// stopRecording finishes the running video on cam and archives it.
func (r *Runner) stopRecording(cam *Camera) error {
	if !cam.Flags().CapturingVideo {
		cam.logf("Already stopped. Ignore")
		return camera.ErrNotRecording
	}

	var err error
	if cam.ctrl.Recording() {
		err = cam.ctrl.StopRecording()
	}

	cam.mu.Lock()
	path := cam.videoPath
	cam.flags.CapturingVideo = false
	cam.videoPath = ""
	cam.recordUntil = time.Time{}
	cam.motion = motionState{}
	cam.mu.Unlock()
	cam.logf("Capturing stopped")

	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	r.archiveFile(cam, path)
	return nil
}

// checkDeadlines stops recordings whose time limit has passed.
func (r *Runner) checkDeadlines() {
	now := r.now()
	for _, cam := range r.allCameras() {
		cam.mu.Lock()
		until := cam.recordUntil
		cam.mu.Unlock()

		if until.IsZero() || now.Before(until) {
			continue
		}
		cam.logf("Video recording duration complete")
		if err := r.stopRecording(cam); err != nil {
			log.Printf("Runner: camera %d: %v", cam.Slot, err)
		}
		cam.mu.Lock()
		cam.recordUntil = time.Time{}
		cam.mu.Unlock()
	}
}

// checkTimelapse takes a timelapse frame on every camera whose interval has
// elapsed since its last frame.
func (r *Runner) checkTimelapse() {
	now := r.now()
	for _, cam := range r.allCameras() {
		if !cam.Flags().TimelapseOn || cam.refusing() {
			continue
		}

		cam.mu.Lock()
		interval := time.Duration(cam.cfg.TLInterval) * time.Second
		due := cam.lastTimelapse.IsZero() || now.Sub(cam.lastTimelapse) >= interval
		if due {
			cam.lastTimelapse = now
		}
		cam.mu.Unlock()
		if !due {
			continue
		}

		if err := r.captureStill(cam, media.KindTimelapse); err != nil {
			log.Printf("Runner: camera %d timelapse: %v", cam.Slot, err)
		}
		r.publishStatus(cam, "")
	}
}

// archiveFile uploads path in the background when an archive is configured.
func (r *Runner) archiveFile(cam *Camera, path string) {
	if r.archive == nil || path == "" {
		return
	}
	r.uploads.Add(1)
	go func() {
		defer r.uploads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		if err := r.archive.Upload(ctx, cam.Slot, path); err != nil {
			log.Printf("Runner: camera %d archive %s: %v", cam.Slot, path, err)
		}
	}()
}
