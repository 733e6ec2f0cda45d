// Package adjust converts the legacy web-interface units used on the wire and
// in settings files into the control units the camera driver understands.
package adjust

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownAwbMode = errors.New("unknown white balance mode")

// Control names understood by camera.Controller.SetControls.
const (
	Sharpness     = "Sharpness"
	Contrast      = "Contrast"
	Brightness    = "Brightness"
	Saturation    = "Saturation"
	ExposureValue = "ExposureValue"
	ExposureTime  = "ExposureTime"
	AnalogueGain  = "AnalogueGain"
	ColourGains   = "ColourGains"
	AwbMode       = "AwbMode"
	FrameRate     = "FrameRate"
	// Quality is the JPEG quality of stills, 1..100.
	Quality = "Quality"
)

// AWB modes the driver knows. Modes without a driver equivalent fall back to auto.
var awbModes = map[string]string{
	"auto":         "auto",
	"tungsten":     "tungsten",
	"fluorescent":  "fluorescent",
	"daylight":     "daylight",
	"cloudy":       "cloudy",
	"indoor":       "indoor",
	"incandescent": "indoor",
	"shade":        "auto",
	"horizon":      "auto",
	"greyworld":    "auto",
	"flash":        "auto",
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

// gain maps -100..100 (default 0) onto 0..upper (default 1).
func gain(v, upper float64) float64 {
	switch {
	case v == 0:
		v = 1
	case v > 0:
		v = 1 + v*(upper-1)/100
	default:
		v = 1 - v/-100
	}
	return clamp(v, 0, upper)
}

// ScaleSharpness maps -100..100 onto 0..16.
func ScaleSharpness(v float64) float64 { return gain(v, 16) }

// ScaleContrast maps -100..100 onto 0..32.
func ScaleContrast(v float64) float64 { return gain(v, 32) }

// ScaleSaturation maps -100..100 onto 0..32.
func ScaleSaturation(v float64) float64 { return gain(v, 32) }

// ScaleBrightness maps 0..100 (default 50) onto -1..1.
func ScaleBrightness(v float64) float64 {
	return clamp((v*2-100)/100, -1, 1)
}

// ScaleExposureCompensation maps -10..10 onto -8..8.
func ScaleExposureCompensation(v int) float64 {
	return clamp(float64(v)*8/10, -8, 8)
}

// ScaleISO turns an ISO value into analogue gain.
func ScaleISO(v int) float64 {
	return float64(v) / 100
}

// ScaleMotionThreshold turns a vector count into a mean squared error
// threshold, 250 vectors being 7 MSE.
func ScaleMotionThreshold(v int) float64 {
	return float64(v) / (250.0 / 7.0)
}

// ParseColourGains parses "red blue" in hundredths and clamps each gain to 0..32.
func ParseColourGains(s string) (red, blue float64, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("colour gains %q: want \"red blue\"", s)
	}
	if red, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("colour gains red: %w", err)
	}
	if blue, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("colour gains blue: %w", err)
	}
	return clamp(red/100, 0, 32), clamp(blue/100, 0, 32), nil
}

// ParseAwbMode resolves a white balance mode name, case-insensitively.
func ParseAwbMode(s string) (string, error) {
	mode, ok := awbModes[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAwbMode, s)
	}
	return mode, nil
}

// ParseFlip decodes the fl parameter: 1 horizontal, 2 vertical, 3 both, anything else none.
func ParseFlip(s string) (hflip, vflip bool) {
	switch s {
	case "1":
		return true, false
	case "2":
		return false, true
	case "3":
		return true, true
	}
	return false, false
}

// PreviewHeight is the 16:9 height for a preview width.
func PreviewHeight(width int) int {
	return width / 16 * 9
}
