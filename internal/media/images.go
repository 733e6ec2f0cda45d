package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// SaveJPEG writes img to path atomically: it is encoded to a .part.jpg
// sibling first and renamed over path, so readers never see half a file.
func SaveJPEG(path string, img image.Image, quality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".part.jpg"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// EncodeJPEG returns img as JPEG bytes.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	return max(1, min(100, q))
}

// Stitch places images next to each other, left to right, or top to bottom
// when vertical is set. Smaller images are padded with black.
func Stitch(imgs []image.Image, vertical bool) image.Image {
	if len(imgs) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	var w, h int
	for _, img := range imgs {
		size := img.Bounds().Size()
		if vertical {
			w = max(w, size.X)
			h += size.Y
		} else {
			w += size.X
			h = max(h, size.Y)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	offset := image.Point{}
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(out, b.Sub(b.Min).Add(offset), img, b.Min, draw.Src)
		if vertical {
			offset.Y += b.Dy()
		} else {
			offset.X += b.Dx()
		}
	}
	return out
}

// Resize scales img to size with bilinear sampling.
func Resize(img image.Image, size image.Point) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, max(size.X, 0), max(size.Y, 0)))
	if img.Bounds().Empty() || out.Bounds().Empty() {
		return out
	}
	draw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Src, nil)
	return out
}

// MeanSquaredError compares two frames on their luma. Frames of different
// sizes are considered completely different.
func MeanSquaredError(a, b image.Image) float64 {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Size() != bb.Size() || ab.Empty() {
		return 255 * 255
	}

	var sum float64
	for y := 0; y < ab.Dy(); y++ {
		for x := 0; x < ab.Dx(); x++ {
			ya := color.GrayModel.Convert(a.At(ab.Min.X+x, ab.Min.Y+y)).(color.Gray).Y
			yb := color.GrayModel.Convert(b.At(bb.Min.X+x, bb.Min.Y+y)).(color.Gray).Y
			d := float64(ya) - float64(yb)
			sum += d * d
		}
	}
	return sum / float64(ab.Dx()*ab.Dy())
}

// MakeThumbnail copies the preview image next to a media file. When there is
// no preview yet a black one of previewSize is written first.
func MakeThumbnail(previewPath, thumbPath string, previewSize image.Point) error {
	if _, err := os.Stat(previewPath); os.IsNotExist(err) {
		blank := image.NewGray(image.Rect(0, 0, max(previewSize.X, 1), max(previewSize.Y, 1)))
		if err := SaveJPEG(previewPath, blank, 50); err != nil {
			return fmt.Errorf("blank preview: %w", err)
		}
	}

	src, err := os.Open(previewPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(thumbPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
