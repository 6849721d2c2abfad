package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionNamesCarryToken(t *testing.T) {
	s, err := NewSession(t.TempDir())
	require.NoError(t, err)

	p := s.Path("list.txt")

	assert.True(t, strings.HasPrefix(filepath.Base(p), s.Token()+"_"))
	assert.True(t, s.Owns(p))
	assert.False(t, s.Owns(filepath.Join(s.Dir(), "other_list.txt")))
}

func TestConcurrentSessionsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	a, err := NewSession(dir)
	require.NoError(t, err)
	b, err := NewSession(dir)
	require.NoError(t, err)

	assert.NotEqual(t, a.Token(), b.Token())
	assert.NotEqual(t, a.Path("chunk.mp3"), b.Path("chunk.mp3"))
}

func TestCleanupRemovesTrackedAndUntrackedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSession(dir)
	require.NoError(t, err)

	_, err = s.WriteFile("chunk_0001.mp3", []byte("a"))
	require.NoError(t, err)
	_, err = s.WriteFile("chunk_0002.mp3", []byte("b"))
	require.NoError(t, err)
	stray := filepath.Join(dir, s.Token()+"_out_repaired.mp3")
	require.NoError(t, os.WriteFile(stray, []byte("c"), 0o600))
	unrelated := filepath.Join(dir, "keep.mp3")
	require.NoError(t, os.WriteFile(unrelated, []byte("d"), 0o600))

	assert.Equal(t, 3, s.Cleanup())

	left, err := Leftovers(dir, s.Token())
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.FileExists(t, unrelated)
}

func TestCleanupToleratesMissingFiles(t *testing.T) {
	s, err := NewSession(t.TempDir())
	require.NoError(t, err)

	s.Path("never_written.mp3")
	s.Track(filepath.Join(s.Dir(), "ghost"))

	assert.Equal(t, 0, s.Cleanup())
	assert.Equal(t, 0, s.Cleanup(), "second cleanup is a no-op")
}
