package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	ErrMacroMissing       = errors.New("macro not found")
	ErrMacroNotExecutable = errors.New("macro is not executable")
)

// runMacro runs "name [args...]" from the macros directory and waits for it.
// Output is captured; stderr ends up in the error when the script fails.
func (r *Runner) runMacro(ctx context.Context, cam *Camera, param string) error {
	parts := strings.Split(param, " ")
	name := parts[0]
	if name == "" || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrMacroMissing, name)
	}
	path := filepath.Join(r.macrosPath, name)

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrMacroMissing, path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrMacroNotExecutable, path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, parts[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("macro %s: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		log.Printf("Runner: macro %s: %s", name, out)
	}
	cam.logf("Macro %s finished", name)
	return nil
}
