package scheduler

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// ScratchCleanupService removes scratch files left behind by runs that
// ended without cleaning up, such as a killed process. Files younger than
// maxAge are never touched so active runs keep their chunks.
type ScratchCleanupService struct {
	dir      string
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	done     chan bool
	stopOnce sync.Once
}

// NewScratchCleanupService creates a sweeper for dir. Start must be called
// to begin sweeping.
func NewScratchCleanupService(dir string, maxAge, interval time.Duration) *ScratchCleanupService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &ScratchCleanupService{
		dir:      dir,
		maxAge:   maxAge,
		interval: interval,
		now:      time.Now,
		done:     make(chan bool),
	}
}

// Start sweeps once immediately and then on every interval.
func (s *ScratchCleanupService) Start() {
	logger.Info("Starting scratch cleanup service (max age: %s, every %s)", s.maxAge, s.interval)
	s.Sweep()

	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.Sweep()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop shuts the sweeper down. It is safe to call more than once.
func (s *ScratchCleanupService) Stop() {
	s.stopOnce.Do(func() {
		logger.Info("Stopping scratch cleanup service")
		if s.ticker == nil {
			return
		}
		s.ticker.Stop()
		select {
		case s.done <- true:
		case <-time.After(5 * time.Second):
			logger.Info("Scratch cleanup service shutdown timeout")
		}
	})
}

// Sweep removes expired files and returns how many were removed and the
// bytes freed.
func (s *ScratchCleanupService) Sweep() (int, int64) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Failed to read scratch directory %s: %v", s.dir, err)
		}
		return 0, 0
	}

	cutoff := s.now().Add(-s.maxAge)
	var removed int
	var bytesFreed int64

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		fullPath := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(fullPath); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("Failed to remove stale scratch file %s: %v", fullPath, err)
			}
			continue
		}
		removed++
		bytesFreed += info.Size()
	}

	if removed > 0 {
		logger.Info("Scratch cleanup complete: %d files removed (%.1f MB freed)",
			removed, float64(bytesFreed)/1024/1024)
	}
	return removed, bytesFreed
}
