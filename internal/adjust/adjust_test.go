package adjust

import (
	"errors"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGains(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"sharpness default", ScaleSharpness, 0, 1},
		{"sharpness max", ScaleSharpness, 100, 16},
		{"sharpness min", ScaleSharpness, -100, 0},
		{"sharpness clamp", ScaleSharpness, 500, 16},
		{"contrast half", ScaleContrast, 50, 16.5},
		{"saturation negative", ScaleSaturation, -50, 0.5},
		{"brightness default", ScaleBrightness, 50, 0},
		{"brightness max", ScaleBrightness, 100, 1},
		{"brightness clamp", ScaleBrightness, -20, -1},
	}

	for _, tt := range tests {
		if got := tt.fn(tt.in); !almostEqual(got, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIntegerScales(t *testing.T) {
	if got := ScaleExposureCompensation(10); !almostEqual(got, 8) {
		t.Errorf("ec 10: got %v", got)
	}
	if got := ScaleExposureCompensation(-25); !almostEqual(got, -8) {
		t.Errorf("ec -25: got %v", got)
	}
	if got := ScaleISO(400); !almostEqual(got, 4) {
		t.Errorf("iso 400: got %v", got)
	}
	if got := ScaleMotionThreshold(250); !almostEqual(got, 7) {
		t.Errorf("mt 250: got %v", got)
	}
}

func TestParseColourGains(t *testing.T) {
	r, b, err := ParseColourGains("150 4000")
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(r, 1.5) || !almostEqual(b, 32) {
		t.Errorf("got (%v, %v), want (1.5, 32)", r, b)
	}

	for _, bad := range []string{"", "150", "a b", "1 2 3"} {
		if _, _, err := ParseColourGains(bad); err == nil {
			t.Errorf("ParseColourGains(%q) accepted", bad)
		}
	}
}

func TestParseAwbMode(t *testing.T) {
	if mode, err := ParseAwbMode("Incandescent"); err != nil || mode != "indoor" {
		t.Errorf("got (%q, %v), want indoor", mode, err)
	}
	if mode, _ := ParseAwbMode("shade"); mode != "auto" {
		t.Errorf("shade: got %q, want auto", mode)
	}
	if _, err := ParseAwbMode("sunset"); !errors.Is(err, ErrUnknownAwbMode) {
		t.Errorf("sunset: err = %v", err)
	}
}

func TestParseFlip(t *testing.T) {
	tests := map[string][2]bool{
		"0": {false, false},
		"1": {true, false},
		"2": {false, true},
		"3": {true, true},
		"x": {false, false},
	}
	for in, want := range tests {
		h, v := ParseFlip(in)
		if h != want[0] || v != want[1] {
			t.Errorf("ParseFlip(%q) = (%v, %v), want %v", in, h, v, want)
		}
	}
}
