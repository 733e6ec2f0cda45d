package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Thumbnail type letters.
const (
	KindImage     = 'i'
	KindVideo     = 'v'
	KindTimelapse = 't'
)

// Counters are the next file indexes per media type.
type Counters struct {
	Image     int
	Video     int
	Timelapse int
}

// Next returns the counter for kind and advances it.
func (c *Counters) Next(kind byte) int {
	var p *int
	switch kind {
	case KindImage:
		p = &c.Image
	case KindVideo:
		p = &c.Video
	case KindTimelapse:
		p = &c.Timelapse
	default:
		return 0
	}
	n := *p
	*p++
	return n
}

// NameVars feed MakeFilename.
type NameVars struct {
	Now        time.Time
	Counters   Counters
	Slot       int
	Annotation string
}

// MakeFilename expands a name template:
//
//	%v %i %t  video, image and timelapse index (4 digits)
//	%y %Y     2 and 4 digit year
//	%M %D     month, day
//	%h %m %s  hour, minute, second
//	%u        milliseconds
//	%I        camera slot
//	%a        user annotation
//	%%        literal %
func MakeFilename(template string, v NameVars) string {
	year := fmt.Sprintf("%04d", v.Now.Year())
	r := strings.NewReplacer(
		"%%", "%",
		"%v", fmt.Sprintf("%04d", v.Counters.Video),
		"%i", fmt.Sprintf("%04d", v.Counters.Image),
		"%t", fmt.Sprintf("%04d", v.Counters.Timelapse),
		"%y", year[2:],
		"%Y", year,
		"%M", fmt.Sprintf("%02d", int(v.Now.Month())),
		"%D", fmt.Sprintf("%02d", v.Now.Day()),
		"%h", fmt.Sprintf("%02d", v.Now.Hour()),
		"%m", fmt.Sprintf("%02d", v.Now.Minute()),
		"%s", fmt.Sprintf("%02d", v.Now.Second()),
		"%u", fmt.Sprintf("%03d", v.Now.Nanosecond()/int(time.Millisecond)),
		"%I", strconv.Itoa(v.Slot),
		"%a", v.Annotation,
	)
	return r.Replace(template)
}

// ScanCounters derives the next indexes from the thumbnails found in dirs.
// Thumbnails are named <file>.<kind><count>.th.jpg; the highest count seen
// per kind wins, gaps are not refilled.
func ScanCounters(dirs ...string) (Counters, error) {
	var last Counters
	seen := make(map[string]bool)

	for _, dir := range dirs {
		if seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Counters{}, fmt.Errorf("scan %s: %w", dir, err)
		}

		for _, e := range entries {
			kind, count, ok := parseThumbnail(e.Name())
			if !ok {
				continue
			}
			switch kind {
			case KindImage:
				last.Image = max(last.Image, count)
			case KindVideo:
				last.Video = max(last.Video, count)
			case KindTimelapse:
				last.Timelapse = max(last.Timelapse, count)
			}
		}
	}

	return Counters{Image: last.Image + 1, Video: last.Video + 1, Timelapse: last.Timelapse + 1}, nil
}

func parseThumbnail(name string) (byte, int, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.HasSuffix(base, ".th") {
		return 0, 0, false
	}
	base = strings.TrimSuffix(base, ".th")

	tag := filepath.Ext(base)
	if len(tag) < 3 {
		return 0, 0, false
	}
	kind, digits := tag[1], tag[2:]
	if kind != KindImage && kind != KindVideo && kind != KindTimelapse {
		return 0, 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, 0, false
		}
	}
	count, err := strconv.Atoi(digits)
	if err != nil {
		return 0, 0, false
	}
	return kind, count, true
}

// ThumbnailPath is the thumbnail name for a media file.
func ThumbnailPath(file string, kind byte, count int) string {
	return fmt.Sprintf("%s.%c%d.th.jpg", file, kind, count)
}
