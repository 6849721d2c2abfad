// Package scratch manages per-run temporary files in the shared scratch area.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/richardsimms/SpeasyTTS/internal/utils"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// Session owns every scratch file of one pipeline run. File names carry a
// random token so concurrent runs sharing a directory never collide.
type Session struct {
	dir   string
	token string

	mu    sync.Mutex
	files []string
}

// NewSession creates the scratch directory if needed and allocates a token.
func NewSession(dir string) (*Session, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Session{dir: dir, token: uuid.New().String()}, nil
}

// Token returns the session token.
func (s *Session) Token() string {
	return s.token
}

// Dir returns the scratch directory.
func (s *Session) Dir() string {
	return s.dir
}

// Path returns the token-prefixed path for name and tracks it for cleanup.
func (s *Session) Path(name string) string {
	p := filepath.Join(s.dir, utils.ScratchFilename(s.token, name))
	s.Track(p)
	return p
}

// Track registers an extra path for removal by Cleanup.
func (s *Session) Track(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, path)
}

// WriteFile writes data to a tracked scratch file and returns its path.
func (s *Session) WriteFile(name string, data []byte) (string, error) {
	p := s.Path(name)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return p, fmt.Errorf("write scratch file %s: %w", name, err)
	}
	return p, nil
}

// Owns reports whether path is a file of this session.
func (s *Session) Owns(path string) bool {
	return filepath.Dir(path) == filepath.Clean(s.dir) &&
		strings.HasPrefix(filepath.Base(path), s.token)
}

// Cleanup removes every tracked file and anything else bearing the token.
// Individual failures are logged and skipped. It returns the number of files
// removed and is safe to call more than once.
func (s *Session) Cleanup() int {
	s.mu.Lock()
	files := s.files
	s.files = nil
	s.mu.Unlock()

	removed := 0
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		seen[f] = true
		if removeQuietly(f) {
			removed++
		}
	}

	leftovers, err := Leftovers(s.dir, s.token)
	if err != nil {
		logger.Warn("Failed to list scratch leftovers for %s: %v", s.token, err)
	}
	for _, f := range leftovers {
		if seen[f] {
			continue
		}
		if removeQuietly(f) {
			removed++
		}
	}
	return removed
}

// Leftovers lists files in dir whose names start with token.
func Leftovers(dir, token string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, token+"*"))
}

func removeQuietly(path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true
	case errors.Is(err, fs.ErrNotExist):
		return false
	default:
		logger.Warn("Failed to remove scratch file %s: %v", path, err)
		return false
	}
}
