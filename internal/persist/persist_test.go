package persist

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestSettingsRoundTripKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uconfig")
	content := "# user config\nvideo_bitrate 17000000\n\nannotation  RPi   Cam %Y\nhflip false\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := ReadSettings(path)
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got, _ := s.Get("annotation"); got != "RPi Cam %Y" {
		t.Errorf("annotation = %q", got)
	}

	s.Set("video_bitrate", "25000000")
	s.Set("tl_interval", "60")
	if err := s.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "video_bitrate 25000000\nannotation RPi Cam %Y\nhflip false\ntl_interval 60\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestReadSettingsMissingFile(t *testing.T) {
	s, err := ReadSettings(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Errorf("keys = %v, want none", keys)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line       string
		key, value string
		ok         bool
	}{
		{"  width 512 ", "width", "512", true},
		{"px 1920 1080 30", "px", "1920 1080 30", true},
		{"solo", "solo", "", true},
		{"# comment", "", "", false},
		{"   ", "", "", false},
	}
	for _, tt := range tests {
		k, v, ok := ParseLine(tt.line)
		if !reflect.DeepEqual([]any{k, v, ok}, []any{tt.key, tt.value, tt.ok}) {
			t.Errorf("ParseLine(%q) = (%q, %q, %v)", tt.line, k, v, ok)
		}
	}
}

func TestCameraLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scheduleLog.txt")
	l := NewCameraLog(path, 1, true)
	l.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local) }

	if err := l.Ensure(); err != nil {
		t.Fatal(err)
	}
	if err := l.Printf("Capturing %s", "started"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	want := "{2024/01/02 03:04:05}{Camera 1} Capturing started\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", data, want)
	}
}

func TestCameraLogDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l := NewCameraLog(path, 0, false)
	if err := l.Printf("ignored"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("disabled log wrote a file")
	}
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status", "status_mjpeg.txt")
	if err := WriteStatus(path, "md_ready"); err != nil {
		t.Fatal(err)
	}
	if err := WriteStatus(path, "video"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "video" {
		t.Errorf("status file = %q, want video", data)
	}
}
