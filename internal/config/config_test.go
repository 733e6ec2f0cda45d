package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxCommandLen != 256 || cfg.MaxPending != 10 {
		t.Errorf("limits = (%d, %d), want (256, 10)", cfg.MaxCommandLen, cfg.MaxPending)
	}
	if cfg.FIFOInterval != time.Second || cfg.LoopInterval != 10*time.Millisecond {
		t.Errorf("intervals = (%v, %v)", cfg.FIFOInterval, cfg.LoopInterval)
	}
	if len(cfg.Cameras) != 1 || cfg.Cameras[0].Driver != "simulated" {
		t.Errorf("cameras = %+v", cfg.Cameras)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camd.yaml")
	data := `
control_file: /run/camd/FIFO
fifo_interval: 250ms
max_pending: 4
cameras:
  - slot: 0
    driver: simulated
    config_file: /etc/camd/cam0.conf
  - slot: 1
kafka:
  brokers: [a:9092]
  command_topic: camera-commands
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CAMD_MAX_PENDING", "20")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ControlFile != "/run/camd/FIFO" || cfg.FIFOInterval != 250*time.Millisecond {
		t.Errorf("pipe settings = (%q, %v)", cfg.ControlFile, cfg.FIFOInterval)
	}
	if cfg.MaxPending != 20 {
		t.Errorf("MaxPending = %d, want env override 20", cfg.MaxPending)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if len(cfg.Cameras) != 2 || cfg.Cameras[0].ConfigFile != "/etc/camd/cam0.conf" {
		t.Errorf("cameras = %+v", cfg.Cameras)
	}
}

func TestLoadCameraLayersFiles(t *testing.T) {
	dir := t.TempDir()
	user := filepath.Join(dir, "uconfig")
	base := filepath.Join(dir, "raspimjpeg")

	baseData := "# defaults\nuser_config " + user + "\nvideo_bitrate 1000000\nwidth 640\nautostart idle\nbrightness 100\n"
	userData := "video_bitrate 2000000\nhflip true\nmotion_external 2\ncamera_resolution 4056 3040\nsolo_stream_mode true\nvideo_fps abc\n"
	if err := os.WriteFile(base, []byte(baseData), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(user, []byte(userData), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCamera(base)
	if err != nil {
		t.Fatalf("LoadCamera failed: %v", err)
	}

	if c.VideoBitrate != 2000000 {
		t.Errorf("VideoBitrate = %d, want user override", c.VideoBitrate)
	}
	if c.PreviewWidth != 640 || c.PreviewHeight != 360 {
		t.Errorf("preview = %dx%d, want 640x360", c.PreviewWidth, c.PreviewHeight)
	}
	if c.Autostart {
		t.Error("autostart idle should disable autostart")
	}
	if c.Brightness != 1 {
		t.Errorf("Brightness = %v, want scaled 1", c.Brightness)
	}
	if !c.HFlip || c.MotionMode != MotionMonitor {
		t.Errorf("hflip/motion mode = %v/%q", c.HFlip, c.MotionMode)
	}
	if c.SensorWidth != 4056 || c.SensorHeight != 3040 {
		t.Errorf("sensor = %dx%d", c.SensorWidth, c.SensorHeight)
	}
	if !c.SoloStream || c.ShowPreview {
		t.Error("solo stream mode should hide the preview")
	}
	if c.VideoFPS != 30 {
		t.Errorf("VideoFPS = %d, invalid value must leave the default", c.VideoFPS)
	}
}

func TestApplyExplicitPreviewHeight(t *testing.T) {
	c := DefaultCamera()
	if err := c.Apply("width", "800"); err != nil {
		t.Fatal(err)
	}
	if c.PreviewHeight != 450 {
		t.Errorf("PreviewHeight = %d, want 450", c.PreviewHeight)
	}
	if err := c.Apply("height", "600"); err != nil {
		t.Fatal(err)
	}
	if c.PreviewHeight != 600 {
		t.Errorf("PreviewHeight = %d, want 600", c.PreviewHeight)
	}
	if err := c.Apply("width", "x"); err == nil {
		t.Error("bad width accepted")
	}
	if c.PreviewWidth != 800 {
		t.Errorf("PreviewWidth = %d after bad value, want 800", c.PreviewWidth)
	}
}
