package media

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMakeFilename(t *testing.T) {
	vars := NameVars{
		Now:        time.Date(2024, time.March, 5, 7, 8, 9, 123*int(time.Millisecond), time.UTC),
		Counters:   Counters{Image: 12, Video: 3, Timelapse: 7},
		Slot:       1,
		Annotation: "garden",
	}

	tests := map[string]string{
		"/tmp/media/im_cam%I_%i_%Y%M%D_%h%m%s.jpg":    "/tmp/media/im_cam1_0012_20240305_070809.jpg",
		"/tmp/media/tl_cam%I_%t_%i_%Y%M%D_%h%m%s.jpg": "/tmp/media/tl_cam1_0007_0012_20240305_070809.jpg",
		"vi_%v.mp4":     "vi_0003.mp4",
		"%y.%u %a 100%%": "24.123 garden 100%",
	}
	for in, want := range tests {
		if got := MakeFilename(in, vars); got != want {
			t.Errorf("MakeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScanCounters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"im_0001.jpg.i3.th.jpg",
		"im_0002.jpg.i11.th.jpg",
		"vi_0001.mp4.v4.th.jpg",
		"tl_0001.jpg.t2.th.jpg",
		"garbage.th.jpg",
		"x.jpg.q9.th.jpg",
		"x.jpg.i9a.th.jpg",
		"plain.jpg",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ScanCounters(dir, dir, filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("ScanCounters failed: %v", err)
	}
	want := Counters{Image: 12, Video: 5, Timelapse: 3}
	if got != want {
		t.Errorf("ScanCounters() = %+v, want %+v", got, want)
	}
}

func TestCountersNext(t *testing.T) {
	c := Counters{Image: 1, Video: 4, Timelapse: 9}
	if n := c.Next(KindVideo); n != 4 || c.Video != 5 {
		t.Errorf("Next(v) = %d, counter %d", n, c.Video)
	}
	if n := c.Next('x'); n != 0 {
		t.Errorf("Next(x) = %d, want 0", n)
	}
}

func TestStitch(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 4, 2))
	b := image.NewGray(image.Rect(0, 0, 3, 5))

	if got := Stitch([]image.Image{a, b}, false).Bounds().Size(); got != image.Pt(7, 5) {
		t.Errorf("horizontal size = %v, want 7x5", got)
	}
	if got := Stitch([]image.Image{a, b}, true).Bounds().Size(); got != image.Pt(4, 7) {
		t.Errorf("vertical size = %v, want 4x7", got)
	}
}

func TestMeanSquaredError(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 2, 2))
	b := image.NewGray(image.Rect(0, 0, 2, 2))
	if got := MeanSquaredError(a, b); got != 0 {
		t.Errorf("identical frames: got %v", got)
	}
	b.SetGray(0, 0, color.Gray{Y: 20})
	if got := MeanSquaredError(a, b); got != 100 {
		t.Errorf("one pixel off by 20: got %v, want 100", got)
	}
}

func TestMakeThumbnailWithoutPreview(t *testing.T) {
	dir := t.TempDir()
	preview := filepath.Join(dir, "preview", "cam_preview.jpg")
	thumb := ThumbnailPath(filepath.Join(dir, "im_0001.jpg"), KindImage, 1)

	if err := MakeThumbnail(preview, thumb, image.Pt(16, 9)); err != nil {
		t.Fatalf("MakeThumbnail failed: %v", err)
	}
	if filepath.Base(thumb) != "im_0001.jpg.i1.th.jpg" {
		t.Errorf("thumbnail name = %s", filepath.Base(thumb))
	}
	for _, p := range []string{preview, thumb} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	if _, err := os.Stat(preview + ".part.jpg"); !os.IsNotExist(err) {
		t.Error("temporary preview left behind")
	}
}

func TestResize(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 6))
	for i := range src.Pix {
		src.Pix[i] = 120
	}

	out := Resize(src, image.Pt(16, 9))
	if got := out.Bounds().Size(); got != image.Pt(16, 9) {
		t.Fatalf("size = %v, want 16x9", got)
	}
	for _, p := range []image.Point{{0, 0}, {15, 8}, {7, 4}} {
		got := int(color.GrayModel.Convert(out.At(p.X, p.Y)).(color.Gray).Y)
		if got < 119 || got > 121 {
			t.Errorf("pixel %v = %d, want about 120", p, got)
		}
	}

	if got := Resize(src, image.Pt(0, 5)).Bounds().Empty(); !got {
		t.Error("zero width resize not empty")
	}
}
