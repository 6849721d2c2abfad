package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// StaleMarker is the repository capability the stale check needs.
type StaleMarker interface {
	FailStale(ctx context.Context, before time.Time, message string) (int64, error)
}

// StaleConversionService fails conversions stuck in pending or processing,
// which happens when the process exits mid-run.
type StaleConversionService struct {
	repo     StaleMarker
	maxAge   time.Duration
	interval time.Duration
	now      func() time.Time

	ticker   *time.Ticker
	done     chan bool
	stopOnce sync.Once
}

// NewStaleConversionService creates a checker that treats records untouched
// for maxAge as abandoned.
func NewStaleConversionService(repo StaleMarker, maxAge time.Duration) *StaleConversionService {
	return &StaleConversionService{
		repo:     repo,
		maxAge:   maxAge,
		interval: time.Hour,
		now:      time.Now,
		done:     make(chan bool),
	}
}

// Start recovers records left by a previous process, then checks hourly.
// Call it before any conversion of this process is submitted.
func (s *StaleConversionService) Start() {
	logger.Info("Starting stale conversion service (max age: %s, runs hourly)", s.maxAge)
	s.Recover(context.Background())

	s.ticker = time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.Check(context.Background())
			case <-s.done:
				return
			}
		}
	}()
}

// Stop halts the service. It is safe to call more than once.
func (s *StaleConversionService) Stop() {
	s.stopOnce.Do(func() {
		logger.Info("Stopping stale conversion service")
		if s.ticker == nil {
			return
		}
		s.ticker.Stop()
		select {
		case s.done <- true:
		case <-time.After(5 * time.Second):
			logger.Info("Stale conversion service shutdown timeout")
		}
	})
}

// Recover fails every active conversion last touched before now. With one
// worker per database these can only belong to a process that exited.
func (s *StaleConversionService) Recover(ctx context.Context) int64 {
	return s.failBefore(ctx, s.now(), "worker restarted before the conversion finished")
}

// Check fails conversions untouched for maxAge and returns how many were updated.
func (s *StaleConversionService) Check(ctx context.Context) int64 {
	return s.failBefore(ctx, s.now().Add(-s.maxAge), "conversion abandoned before completion")
}

func (s *StaleConversionService) failBefore(ctx context.Context, cutoff time.Time, message string) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	affected, err := s.repo.FailStale(ctx, cutoff, message)
	if err != nil {
		logger.Error("Failed to fail stale conversions: %v", err)
		return 0
	}
	if affected > 0 {
		logger.Info("Failed %d stale conversions", affected)
	}
	return affected
}
