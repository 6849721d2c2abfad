package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsTasksAndReportsResults(t *testing.T) {
	e := NewExecutor(2, 4)
	e.Start()
	defer func() { _ = e.Stop(context.Background()) }()

	ok, err := e.Submit("ok", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	boom := errors.New("boom")
	bad, err := e.Submit("bad", func(ctx context.Context) error { return boom })
	require.NoError(t, err)

	assert.NoError(t, <-ok)
	assert.ErrorIs(t, <-bad, boom)
}

func TestExecutor_BoundsConcurrency(t *testing.T) {
	e := NewExecutor(2, 10)
	e.Start()

	var running, peak atomic.Int32
	var results []<-chan error
	for i := 0; i < 6; i++ {
		ch, err := e.Submit("work", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
			return nil
		})
		require.NoError(t, err)
		results = append(results, ch)
	}
	for _, ch := range results {
		assert.NoError(t, <-ch)
	}
	require.NoError(t, e.Stop(context.Background()))
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestExecutor_QueueFull(t *testing.T) {
	e := NewExecutor(1, 1)
	e.Start()

	release := make(chan struct{})
	started := make(chan struct{})
	_, err := e.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	_, err = e.Submit("queued", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	_, err = e.Submit("overflow", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	require.NoError(t, e.Stop(context.Background()))
}

func TestExecutor_StopRejectsAndDrains(t *testing.T) {
	e := NewExecutor(1, 4)
	e.Start()

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := e.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, e.Stop(context.Background()))
	assert.Equal(t, int32(3), ran.Load())

	_, err := e.Submit("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)

	// Second stop is a no-op.
	assert.NoError(t, e.Stop(context.Background()))
}

func TestExecutor_StopTimeoutCancelsTasks(t *testing.T) {
	e := NewExecutor(1, 1)
	e.Start()

	started := make(chan struct{})
	result, err := e.Submit("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Stop(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestExecutor_RecoversPanics(t *testing.T) {
	e := NewExecutor(1, 1)
	e.Start()
	defer func() { _ = e.Stop(context.Background()) }()

	ch, err := e.Submit("panic", func(ctx context.Context) error { panic("kaboom") })
	require.NoError(t, err)
	err = <-ch
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	ch, err = e.Submit("after", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, <-ch)
}

func TestScratchCleanup_RemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "abc_chunk_0001.mp3")
	newFile := filepath.Join(dir, "def_chunk_0001.mp3")
	require.NoError(t, os.WriteFile(oldFile, make([]byte, 2048), 0o600))
	require.NoError(t, os.WriteFile(newFile, []byte("fresh"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o750))

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	s := NewScratchCleanupService(dir, time.Hour, time.Minute)
	removed, freed := s.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, int64(2048), freed)
	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, newFile)
	assert.DirExists(t, filepath.Join(dir, "subdir"))
}

func TestScratchCleanup_MissingDirectory(t *testing.T) {
	s := NewScratchCleanupService(filepath.Join(t.TempDir(), "missing"), time.Hour, time.Minute)
	removed, freed := s.Sweep()
	assert.Zero(t, removed)
	assert.Zero(t, freed)
}

func TestScratchCleanup_StartStop(t *testing.T) {
	s := NewScratchCleanupService(t.TempDir(), time.Hour, time.Hour)
	s.Start()
	s.Stop()
	s.Stop()
}

type fakeStaleMarker struct {
	mu      sync.Mutex
	befores []time.Time
	n       int64
	err     error
}

func (f *fakeStaleMarker) FailStale(_ context.Context, before time.Time, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.befores = append(f.befores, before)
	return f.n, f.err
}

func TestStaleConversions_UsesCutoff(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	repo := &fakeStaleMarker{n: 2}
	s := NewStaleConversionService(repo, 30*time.Minute)
	s.now = func() time.Time { return now }

	assert.Equal(t, int64(2), s.Check(context.Background()))
	require.Len(t, repo.befores, 1)
	assert.Equal(t, now.Add(-30*time.Minute), repo.befores[0])
}

func TestStaleConversions_ErrorIsLogged(t *testing.T) {
	repo := &fakeStaleMarker{err: errors.New("db down")}
	s := NewStaleConversionService(repo, time.Minute)
	assert.Zero(t, s.Check(context.Background()))
}

func TestStaleConversions_StartRecoversPreviousProcess(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	repo := &fakeStaleMarker{}
	s := NewStaleConversionService(repo, time.Hour)
	s.now = func() time.Time { return now }
	s.Start()
	s.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.befores, 1)
	assert.Equal(t, now, repo.befores[0])
}
