package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/audio"
	"github.com/richardsimms/SpeasyTTS/internal/audio/audiotest"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/tts"
)

// markerProvider returns "ID3" followed by a marker naming the chunk's first word.
type markerProvider struct {
	mu    sync.Mutex
	calls []string
	fail  map[int]error // by 1-based call number
}

func (m *markerProvider) Name() string { return "marker" }

func (m *markerProvider) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, text)
	if err, ok := m.fail[len(m.calls)]; ok {
		return nil, err
	}
	return []byte("ID3<" + strings.Fields(text)[0] + ">"), nil
}

type harness struct {
	pipeline *Pipeline
	provider *markerProvider
	runner   *audiotest.Runner
	scratch  string
}

func newHarness(t *testing.T, ceiling int) *harness {
	t.Helper()
	provider := &markerProvider{fail: map[int]error{}}
	runner := audiotest.NewRunner()
	runner.ConcatMedia.Tags = map[string]string{}
	proc := audio.NewService(&config.AudioConfig{RepairBitrate: 128}, audio.WithCommandRunner(runner))
	dir := t.TempDir()

	p, err := New(Options{
		Ceiling:    ceiling,
		MinChunk:   10,
		ScratchDir: dir,
		Retry:      RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond},
	}, tts.NewSynthesizer(provider, "alloy", 4096), proc)
	require.NoError(t, err)
	return &harness{pipeline: p, provider: provider, runner: runner, scratch: dir}
}

func (h *harness) assertScratchEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	assert.Empty(t, entries, "no scratch files remain")
}

func paragraphs(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("P%02d %s", i+1, strings.Repeat("word ", 15))
	}
	return strings.Join(parts, "\n\n")
}

func nineThousandChars() string {
	var b strings.Builder
	for i := 0; b.Len() < 9000; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "Line%03d of the story moves along at a steady and even pace.", i)
	}
	return b.String()
}

func TestRunPreservesChunkOrder(t *testing.T) {
	h := newHarness(t, 100)

	res, err := h.pipeline.Run(context.Background(), Request{
		Text:     paragraphs(5),
		Metadata: models.PodcastMetadata{Title: "Ordered", Episode: 4},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, res.Chunks)
	assert.Equal(t, "ID3<P01>ID3<P02>ID3<P03>ID3<P04>ID3<P05>", string(res.Audio))
	assert.True(t, res.Valid())
	assert.Equal(t, "4", res.Report.Metadata.Tags["track"])
	h.assertScratchEmpty(t)
}

func TestRunNineThousandCharacterScenario(t *testing.T) {
	h := newHarness(t, 3800)

	res, err := h.pipeline.Run(context.Background(), Request{
		Text:     nineThousandChars(),
		Metadata: models.PodcastMetadata{Title: "Long read", Episode: 12},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Chunks)
	require.Len(t, h.provider.calls, 3)
	for _, c := range h.provider.calls {
		assert.LessOrEqual(t, len([]rune(c)), 3800)
	}
	assert.True(t, res.Report.Valid)
	assert.Empty(t, res.Report.Errors)
	assert.False(t, res.Repaired)
	assert.Equal(t, "12", res.Report.Metadata.Tags["episode"])
	h.assertScratchEmpty(t)
}

func TestRunSingleChunkNeverInvokesFFmpeg(t *testing.T) {
	h := newHarness(t, 3800)

	res, err := h.pipeline.Run(context.Background(), Request{Text: "Just one short paragraph."})
	require.NoError(t, err)

	assert.Empty(t, h.runner.CallsTo("ffmpeg"))
	assert.Equal(t, []byte("ID3<Just>"), res.Audio)
	assert.True(t, res.Valid())
	assert.Contains(t, res.Report.Warnings[0], "ID3")
	h.assertScratchEmpty(t)
}

func TestRunEmptyTextShortCircuits(t *testing.T) {
	h := newHarness(t, 3800)

	res, err := h.pipeline.Run(context.Background(), Request{Text: "  \n\n "})

	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperrors.ErrEmptyText)
	assert.Empty(t, h.provider.calls)
	h.assertScratchEmpty(t)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	h := newHarness(t, 100)
	h.provider.fail[2] = apperrors.Synthesis(apperrors.ReasonRateLimited, "slow down")

	res, err := h.pipeline.Run(context.Background(), Request{Text: paragraphs(2)})
	require.NoError(t, err)

	assert.Len(t, h.provider.calls, 3)
	assert.Equal(t, "ID3<P01>ID3<P02>", string(res.Audio))
}

func TestRunAbortsOnPermanentSynthesisFailure(t *testing.T) {
	h := newHarness(t, 100)
	h.provider.fail[2] = apperrors.Synthesis(apperrors.ReasonRejected, "voice not found")

	res, err := h.pipeline.Run(context.Background(), Request{Text: paragraphs(3)})

	assert.Nil(t, res, "no partial artifact")
	assert.ErrorIs(t, err, apperrors.ErrSynthesis)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 2, appErr.Index)
	assert.Len(t, h.provider.calls, 2, "not retried, later chunks never attempted")
	assert.Empty(t, h.runner.CallsTo("ffmpeg"))
	h.assertScratchEmpty(t)
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, 100)
	for i := 1; i <= 3; i++ {
		h.provider.fail[i] = apperrors.Synthesis(apperrors.ReasonTransient, "timeout")
	}

	_, err := h.pipeline.Run(context.Background(), Request{Text: paragraphs(2)})

	assert.Equal(t, apperrors.ReasonTransient, apperrors.ReasonOf(err))
	assert.Len(t, h.provider.calls, 3)
	h.assertScratchEmpty(t)
}

func TestRunConcatenationFailureCleansUp(t *testing.T) {
	h := newHarness(t, 100)
	h.runner.FFmpegErr = errors.New("exit status 1")

	_, err := h.pipeline.Run(context.Background(), Request{Text: paragraphs(3)})

	assert.ErrorIs(t, err, apperrors.ErrConcatenation)
	h.assertScratchEmpty(t)
}

func TestRunRepairsBitrateAndSampleRate(t *testing.T) {
	h := newHarness(t, 100)
	h.runner.ConcatMedia.BitrateKbps = 500
	h.runner.ConcatMedia.SampleRate = 22050

	res, err := h.pipeline.Run(context.Background(), Request{Text: paragraphs(2), Metadata: models.PodcastMetadata{Title: "Loud"}})
	require.NoError(t, err)

	require.False(t, res.InitialReport.Valid)
	assert.Len(t, res.InitialReport.Errors, 2)
	assert.True(t, res.InitialReport.Has(models.IssueBitrateTooHigh))
	assert.True(t, res.InitialReport.Has(models.IssueSampleRateUnsupported))

	assert.True(t, res.Repaired)
	assert.True(t, res.Report.Valid)
	assert.Equal(t, 128, res.Report.Metadata.BitrateKbps)
	assert.Equal(t, 44100, res.Report.Metadata.SampleRate)
	assert.Len(t, h.runner.CallsTo("ffmpeg"), 2, "one concat and one repair pass")
	h.assertScratchEmpty(t)
}

func TestRunOversizedArtifactStaysInvalid(t *testing.T) {
	h := newHarness(t, 100)

	res, err := h.pipeline.Run(context.Background(), Request{
		Text:         paragraphs(2),
		Requirements: models.AudioRequirements{MaxFileSizeBytes: 4},
	})
	require.NoError(t, err, "best-effort artifact is still returned")

	assert.False(t, res.Valid())
	assert.False(t, res.Repaired)
	assert.True(t, res.Report.Has(models.IssueFileTooLarge))
	assert.NotEmpty(t, res.Audio)
	assert.Len(t, h.runner.CallsTo("ffmpeg"), 1, "no repair pass")
	h.assertScratchEmpty(t)
}

func TestConcurrentRunsShareScratchSafely(t *testing.T) {
	h := newHarness(t, 100)

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.pipeline.Run(context.Background(), Request{Text: paragraphs(3)})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, res := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "ID3<P01>ID3<P02>ID3<P03>", string(res.Audio))
		assert.False(t, seen[res.SessionID])
		seen[res.SessionID] = true
	}
	h.assertScratchEmpty(t)
}

func TestNewRejectsBadCeiling(t *testing.T) {
	_, err := New(Options{Ceiling: 0}, nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrSegmentation)
}
