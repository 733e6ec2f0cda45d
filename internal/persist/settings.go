package persist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Settings is a legacy "key value" settings file. Keys keep the order in
// which they were first seen so a rewrite stays diffable against the
// original. Lines starting with # are ignored.
type Settings struct {
	path string

	mu     sync.Mutex
	keys   []string
	values map[string]string
}

// ReadSettings parses path. A missing file yields no settings and no error.
func ReadSettings(path string) (*Settings, error) {
	s := &Settings{path: path, values: make(map[string]string)}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := ParseLine(sc.Text())
		if ok {
			s.set(key, value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// ParseLine splits one settings line. Runs of whitespace in the value
// collapse to a single space.
func ParseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	fields := strings.Fields(line)
	return fields[0], strings.Join(fields[1:], " "), true
}

func (s *Settings) Path() string {
	return s.path
}

func (s *Settings) set(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

func (s *Settings) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(key, value)
}

func (s *Settings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in file order.
func (s *Settings) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// Save rewrites the whole file.
func (s *Settings) Save() error {
	s.mu.Lock()
	var b strings.Builder
	for _, k := range s.keys {
		if v := s.values[k]; v != "" {
			b.WriteString(k + " " + v + "\n")
		} else {
			b.WriteString(k + "\n")
		}
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
