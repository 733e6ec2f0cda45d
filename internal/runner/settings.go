package runner

import (
	"log"
	"strconv"
	"strings"

	"github.com/Capitan-Parrot/distributed-video-system/camd/internal/protocol"
)

// persistSetting writes the setting a successful command changed to the
// camera's user config file. Most commands store their raw parameter; a few
// store a boolean or one value per key.
func (r *Runner) persistSetting(cam *Camera, def protocol.Definition, param string) {
	if len(def.Settings) == 0 {
		return
	}
	cfg := cam.Config()

	cam.mu.Lock()
	s := cam.settings
	cam.mu.Unlock()

	switch def.Code {
	case "dp":
		s.Set(def.Settings[0], strconv.FormatBool(param != "0"))
	case "fl":
		s.Set("hflip", strconv.FormatBool(cfg.HFlip))
		s.Set("vflip", strconv.FormatBool(cfg.VFlip))
	case "1s":
		s.Set(def.Settings[0], strconv.FormatBool(cfg.SoloStream))
	case "pv":
		fields := strings.Fields(param)
		for i, key := range def.Settings[:3] {
			if i < len(fields) {
				s.Set(key, fields[i])
			}
		}
		s.Set("height", strconv.Itoa(cfg.PreviewHeight))
	default:
		if len(def.Settings) == 1 {
			s.Set(def.Settings[0], param)
			break
		}
		fields := strings.Fields(param)
		for i, key := range def.Settings {
			if i < len(fields) {
				s.Set(key, fields[i])
			}
		}
	}

	if err := s.Save(); err != nil {
		log.Printf("Runner: camera %d save settings: %v", cam.Slot, err)
	}
}
