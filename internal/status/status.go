package status

import "github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"

// Flags are the camera state bits the status is derived from.
type Flags struct {
	CapturingStill  bool
	CapturingVideo  bool
	MotionDetection bool
	TimelapseOn     bool
}

// Derive computes the published status of a camera.
//
// explicit is the value most recently set through an explicit status call:
// empty, the halted sentinel, an error string or a caller supplied custom
// label. Error strings are sticky and win over everything; halted wins over
// the flags; a custom label is reported as is. Otherwise the status follows
// from the flags and whether the controller is started.
func Derive(explicit models.CameraStatus, f Flags, started bool) models.CameraStatus {
	switch {
	case explicit.IsError():
		return explicit
	case explicit == models.StatusHalted:
		return models.StatusHalted
	case explicit != "" && !explicit.IsDerived():
		return explicit
	case !started:
		return models.StatusHalted
	case f.CapturingStill:
		return models.StatusImage
	case f.CapturingVideo:
		switch {
		case f.TimelapseOn && f.MotionDetection:
			return models.StatusTLMDVideo
		case f.TimelapseOn:
			return models.StatusTLVideo
		case f.MotionDetection:
			return models.StatusMDVideo
		}
		return models.StatusVideo
	}

	switch {
	case f.TimelapseOn && f.MotionDetection:
		return models.StatusTLMDReady
	case f.TimelapseOn:
		return models.StatusTimelapse
	case f.MotionDetection:
		return models.StatusMDReady
	}
	return models.StatusReady
}
