package persist

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const logTimeLayout = "2006/01/02 15:04:05"

// WriteStatus replaces the content of the status file with status.
func WriteStatus(path, status string) error {
	if status == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(status), 0o644)
}

// Logfile appends timestamped lines to a text file shared with the web
// interface, which uses [] for its own timestamps; ours use {}.
type Logfile struct {
	path   string
	tag    string
	enable bool
	now    func() time.Time

	mu sync.Mutex
}

// NewCameraLog returns the per-camera log. When enabled is false every
// write is a no-op.
func NewCameraLog(path string, slot int, enabled bool) *Logfile {
	return &Logfile{path: path, tag: fmt.Sprintf("{Camera %d} ", slot), enable: enabled, now: time.Now}
}

// NewMotionLog returns the log motion events go to in monitor mode.
func NewMotionLog(path string) *Logfile {
	return &Logfile{path: path, tag: " ", enable: true, now: time.Now}
}

// Ensure creates the log file and its directory.
func (l *Logfile) Ensure() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (l *Logfile) Printf(format string, args ...any) error {
	if l == nil || !l.enable {
		return nil
	}

	line := "{" + l.now().Format(logTimeLayout) + "}" + l.tag + fmt.Sprintf(format, args...) + "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Remove deletes path if it exists.
func Remove(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("Persist: remove %s: %v", p, err)
		}
	}
}
