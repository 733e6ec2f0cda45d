package models

import (
	"strings"
	"time"
)

// CameraStatus is the operating-state label published for a camera.
type CameraStatus string

const (
	StatusHalted    CameraStatus = "halted"
	StatusImage     CameraStatus = "image"
	StatusVideo     CameraStatus = "video"
	StatusMDVideo   CameraStatus = "md_video"
	StatusTLVideo   CameraStatus = "tl_video"
	StatusTLMDVideo CameraStatus = "tl_md_video"
	StatusReady     CameraStatus = "ready"
	StatusMDReady   CameraStatus = "md_ready"
	StatusTimelapse CameraStatus = "timelapse"
	StatusTLMDReady CameraStatus = "tl_md_ready"
)

// ErrorMarker prefixes sticky error statuses.
const ErrorMarker = "Error"

var derivedStatuses = map[CameraStatus]struct{}{
	StatusHalted: {}, StatusImage: {},
	StatusVideo: {}, StatusMDVideo: {}, StatusTLVideo: {}, StatusTLMDVideo: {},
	StatusReady: {}, StatusMDReady: {}, StatusTimelapse: {}, StatusTLMDReady: {},
}

// IsError reports whether the status carries the error marker.
func (s CameraStatus) IsError() bool {
	return strings.HasPrefix(string(s), ErrorMarker)
}

// IsDerived reports whether s is one of the labels computed from camera flags.
func (s CameraStatus) IsDerived() bool {
	_, ok := derivedStatuses[s]
	return ok
}

// Command is one parsed protocol message. A simple command has exactly one
// code and is addressed to the main camera; a group command addresses camera
// slots by position and may contain blank codes to skip a slot.
type Command struct {
	ID     string   `json:"id"`
	Codes  []string `json:"codes"`
	Params []string `json:"params"`
	Group  bool     `json:"group"`
}

// Code returns the code of a simple command.
func (c Command) Code() string {
	if len(c.Codes) == 0 {
		return ""
	}
	return c.Codes[0]
}

// Param returns the parameter of a simple command.
func (c Command) Param() string {
	if len(c.Params) == 0 {
		return ""
	}
	return c.Params[0]
}

// StatusEvent is published every time a camera status is written.
type StatusEvent struct {
	Camera    int          `json:"camera"`
	Status    CameraStatus `json:"status"`
	Command   string       `json:"command,omitempty"`
	TimeStamp time.Time    `json:"timestamp"`
}

// DispatchRecord describes a single dispatch attempt against one camera.
type DispatchRecord struct {
	ID        string        `json:"id"`
	Camera    int           `json:"camera"`
	Code      string        `json:"code"`
	Param     string        `json:"param"`
	Success   bool          `json:"success"`
	Elapsed   time.Duration `json:"elapsed"`
	CreatedAt time.Time     `json:"created_at"`
}

// CameraState is a point-in-time view of one camera.
type CameraState struct {
	Slot        int          `json:"slot"`
	Status      CameraStatus `json:"status"`
	Main        bool         `json:"main"`
	ShowPreview bool         `json:"show_preview"`
	MotionMode  string       `json:"motion_mode"`
	RecordUntil time.Time    `json:"record_until,omitempty"`
}
