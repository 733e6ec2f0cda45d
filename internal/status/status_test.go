package status

import (
	"testing"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/models"
)

func TestDeriveFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		started bool
		want    models.CameraStatus
	}{
		{"idle", Flags{}, true, models.StatusReady},
		{"idle stopped", Flags{}, false, models.StatusHalted},
		{"stopped overrides flags", Flags{CapturingVideo: true, MotionDetection: true}, false, models.StatusHalted},
		{"still", Flags{CapturingStill: true, CapturingVideo: true}, true, models.StatusImage},
		{"video", Flags{CapturingVideo: true}, true, models.StatusVideo},
		{"md video", Flags{CapturingVideo: true, MotionDetection: true}, true, models.StatusMDVideo},
		{"tl video", Flags{CapturingVideo: true, TimelapseOn: true}, true, models.StatusTLVideo},
		{"tl md video", Flags{CapturingVideo: true, MotionDetection: true, TimelapseOn: true}, true, models.StatusTLMDVideo},
		{"md ready", Flags{MotionDetection: true}, true, models.StatusMDReady},
		{"timelapse", Flags{TimelapseOn: true}, true, models.StatusTimelapse},
		{"tl md ready", Flags{MotionDetection: true, TimelapseOn: true}, true, models.StatusTLMDReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive("", tt.flags, tt.started); got != tt.want {
				t.Errorf("Derive() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveFlippingTimelapse(t *testing.T) {
	f := Flags{CapturingVideo: true, MotionDetection: true}
	if got := Derive("", f, true); got != models.StatusMDVideo {
		t.Fatalf("got %q, want md_video", got)
	}
	f.TimelapseOn = true
	if got := Derive("", f, true); got != models.StatusTLMDVideo {
		t.Fatalf("got %q, want tl_md_video", got)
	}
}

func TestDeriveExplicit(t *testing.T) {
	f := Flags{CapturingVideo: true}

	if got := Derive(models.StatusHalted, f, true); got != models.StatusHalted {
		t.Errorf("halted sentinel: got %q", got)
	}
	if got := Derive("Error: restart failed", f, false); got != "Error: restart failed" {
		t.Errorf("error status: got %q", got)
	}
	if got := Derive("maintenance", f, true); got != "maintenance" {
		t.Errorf("custom status: got %q", got)
	}
	// A stale derived label must not shadow the flags.
	if got := Derive(models.StatusReady, f, true); got != models.StatusVideo {
		t.Errorf("derived explicit: got %q, want video", got)
	}
}
