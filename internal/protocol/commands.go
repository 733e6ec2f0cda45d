package protocol

// Class tells the dispatcher how much of the camera pipeline a command
// disturbs and therefore which pre/post protocol it needs.
type Class int

const (
	// NoRestart commands only touch configuration, flags or narrow controller setters.
	NoRestart Class = iota
	// QuickRestart commands need the hardware stream stopped but not the encoder.
	QuickRestart
	// FullRestart commands need the controller and any running encoder stopped.
	FullRestart
	// RunAll starts or stops every camera and the workers as a unit.
	RunAll
	// Macro runs an external script; never restarts, never persists.
	Macro
)

func (c Class) String() string {
	switch c {
	case NoRestart:
		return "no-restart"
	case QuickRestart:
		return "quick-restart"
	case FullRestart:
		return "full-restart"
	case RunAll:
		return "run-all"
	case Macro:
		return "macro"
	}
	return "unknown"
}

// Definition describes one operation of the command table.
type Definition struct {
	Code  string
	Name  string
	Class Class
	// Settings are the settings-file keys written on success, in parameter
	// order. Empty means the command is not persisted.
	Settings []string
}

const (
	CodeRun            = "ru"
	CodeMacro          = "sy"
	CodeImage          = "im"
	CodeStitchedImage  = "im+im"
	CodeMaxResImage    = "ix"
	CodeMaxResStitched = "ix+ix"
)

var table = map[string]Definition{
	"an":    {Name: "annotation", Settings: []string{"annotation"}},
	"sh":    {Name: "sharpness", Settings: []string{"sharpness"}},
	"co":    {Name: "contrast", Settings: []string{"contrast"}},
	"br":    {Name: "brightness", Settings: []string{"brightness"}},
	"sa":    {Name: "saturation", Settings: []string{"saturation"}},
	"ss":    {Name: "shutter speed", Settings: []string{"shutter_speed"}},
	"ec":    {Name: "exposure compensation", Settings: []string{"exposure_compensation"}},
	"is":    {Name: "iso", Settings: []string{"iso"}},
	"qu":    {Name: "image quality", Settings: []string{"image_quality"}},
	"ca":    {Name: "video capture"},
	"px":    {Name: "picture settings", Class: FullRestart, Settings: []string{"video_width", "video_height", "video_fps", "MP4Box_fps", "image_width", "image_height"}},
	"pv":    {Name: "preview settings", Settings: []string{"quality", "width", "divider", "height"}},
	"im":    {Name: "still capture"},
	"md":    {Name: "motion detection"},
	"mx":    {Name: "motion mode", Settings: []string{"motion_external"}},
	"mt":    {Name: "motion threshold", Settings: []string{"motion_threshold"}},
	"ms":    {Name: "motion initframes", Settings: []string{"motion_initframes"}},
	"mb":    {Name: "motion startframes", Settings: []string{"motion_startframes"}},
	"me":    {Name: "motion stopframes", Settings: []string{"motion_stopframes"}},
	"ru":    {Name: "run", Class: RunAll},
	"bi":    {Name: "video bitrate", Settings: []string{"video_bitrate"}},
	"sc":    {Name: "file counters"},
	"fl":    {Name: "flip", Class: QuickRestart, Settings: []string{"hflip", "vflip"}},
	"rs":    {Name: "reset settings", Class: FullRestart},
	"cn":    {Name: "main camera"},
	"im+im": {Name: "stitched capture"},
	"dp":    {Name: "display preview", Settings: []string{"show_preview"}},
	"cr":    {Name: "camera resolution", Class: FullRestart, Settings: []string{"camera_resolution"}},
	"cs":    {Name: "stream sizes", Class: FullRestart},
	"ix":    {Name: "max resolution capture", Class: FullRestart},
	"ix+ix": {Name: "max resolution stitched capture", Class: FullRestart},
	"1s":    {Name: "solo stream mode", Class: FullRestart, Settings: []string{"solo_stream_mode"}},
	"wb":    {Name: "white balance", Settings: []string{"white_balance"}},
	"ag":    {Name: "colour gains", Settings: []string{"autowbgain_r", "autowbgain_b"}},
	"tl":    {Name: "timelapse"},
	"tv":    {Name: "timelapse interval", Settings: []string{"tl_interval"}},
	"sy":    {Name: "macro", Class: Macro},
}

func init() {
	for code, def := range table {
		def.Code = code
		table[code] = def
	}
}

// Lookup returns the table entry for code.
func Lookup(code string) (Definition, bool) {
	def, ok := table[code]
	return def, ok
}

// IsValid reports whether code names a known operation.
func IsValid(code string) bool {
	_, ok := table[code]
	return ok
}
