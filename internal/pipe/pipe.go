package pipe

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Pipe is the read end of the control FIFO. It is opened non-blocking so a
// poll never stalls when no writer is connected.
type Pipe struct {
	path   string
	fd     int
	maxLen int
}

// Open creates the FIFO at path if it does not exist yet, opens it for
// non-blocking reads and drops whatever a writer left behind before the
// daemon started.
func Open(path string, maxLen int) (*Pipe, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create control dir: %w", err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("Pipe: control file %s does not exist, creating FIFO", path)
		if err := unix.Mkfifo(path, 0o666); err != nil {
			return nil, fmt.Errorf("mkfifo %s: %w", path, err)
		}
		// mkfifo honours the umask; writers from other users need the broad mode.
		if err := os.Chmod(path, 0o666); err != nil {
			log.Printf("Pipe: chmod %s: %v", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	p := &Pipe{path: path, fd: fd, maxLen: maxLen}
	if _, err := p.Read(); err != nil {
		log.Printf("Pipe: cannot flush %s: %v", path, err)
	}
	return p, nil
}

// Read returns whatever is pending in the FIFO, at most maxLen bytes. An
// empty string with a nil error means there was nothing to read.
func (p *Pipe) Read() (string, error) {
	buf := make([]byte, p.maxLen)
	n, err := unix.Read(p.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", p.path, err)
	}
	if n <= 0 {
		// No writer connected.
		return "", nil
	}
	return string(buf[:n]), nil
}

func (p *Pipe) Path() string {
	return p.path
}

func (p *Pipe) Close() error {
	if err := unix.Close(p.fd); err != nil {
		return fmt.Errorf("close %s: %w", p.path, err)
	}
	return nil
}
