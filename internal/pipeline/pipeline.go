// Package pipeline runs one text-to-podcast conversion: segment, synthesize
// each chunk in order, join and tag, validate and repair if needed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/internal/scratch"
	"github.com/richardsimms/SpeasyTTS/internal/segmenter"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
	"github.com/richardsimms/SpeasyTTS/pkg/version"
)

// ChunkSynthesizer converts one chunk into audio.
type ChunkSynthesizer interface {
	Synthesize(ctx context.Context, chunk models.TextChunk) (models.AudioSegment, error)
}

// AudioProcessor joins, inspects and repairs artifacts.
type AudioProcessor interface {
	Concatenate(ctx context.Context, session *scratch.Session, segments []models.AudioSegment, meta models.PodcastMetadata) (models.AudioArtifact, error)
	Validate(ctx context.Context, path string, reqs models.AudioRequirements) *models.ValidationReport
	Repair(ctx context.Context, path string, report *models.ValidationReport, reqs models.AudioRequirements) (string, error)
}

// Options configures a Pipeline.
type Options struct {
	Ceiling    int
	MinChunk   int
	ScratchDir string
	Retry      RetryPolicy
}

// OptionsFromConfig maps application config onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Ceiling:    cfg.TTS.Ceiling,
		MinChunk:   cfg.TTS.MinChunk,
		ScratchDir: cfg.Audio.TempPath,
		Retry: RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
	}
}

// Request is one conversion's input.
type Request struct {
	Text         string
	Metadata     models.PodcastMetadata
	Requirements models.AudioRequirements
}

// Result is the outcome of a run that produced audio. Report is the
// definitive verdict; when it is invalid, Audio is a best-effort artifact
// the caller may keep or discard.
type Result struct {
	SessionID     string
	Audio         []byte
	Chunks        int
	Report        *models.ValidationReport
	InitialReport *models.ValidationReport
	Repaired      bool
	Elapsed       time.Duration
}

// Valid reports whether the final artifact passed validation.
func (r *Result) Valid() bool {
	return r.Report != nil && r.Report.Valid
}

// Duration returns the artifact's playing time from the final report.
func (r *Result) Duration() time.Duration {
	if r.Report == nil {
		return 0
	}
	return r.Report.Metadata.Duration()
}

// Pipeline is safe for concurrent use; runs share only the scratch
// directory and keep their files apart by session token.
type Pipeline struct {
	segmenter  *segmenter.Segmenter
	synth      ChunkSynthesizer
	audio      AudioProcessor
	scratchDir string
	retry      RetryPolicy
	metrics    *metrics
}

// New creates a pipeline.
func New(opts Options, synth ChunkSynthesizer, proc AudioProcessor) (*Pipeline, error) {
	seg, err := segmenter.New(opts.Ceiling, opts.MinChunk)
	if err != nil {
		return nil, err
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = os.TempDir()
	}
	m, err := newMetrics()
	if err != nil {
		return nil, fmt.Errorf("register pipeline metrics: %w", err)
	}
	return &Pipeline{
		segmenter:  seg,
		synth:      synth,
		audio:      proc,
		scratchDir: opts.ScratchDir,
		retry:      opts.Retry.withDefaults(),
		metrics:    m,
	}, nil
}

// Run executes one conversion to completion. It returns an error only when
// no artifact could be produced; every scratch file of the run is removed
// before it returns.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, req)
	p.metrics.recordRun(ctx, res, err, time.Since(start))
	if res != nil {
		res.Elapsed = time.Since(start)
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, error) {
	chunks, err := p.segmenter.Segment(req.Text)
	if err != nil {
		return nil, err
	}
	meta := req.Metadata.WithDefaults(version.Product)
	reqs := req.Requirements.WithDefaults()

	session, err := scratch.NewSession(p.scratchDir)
	if err != nil {
		return nil, apperrors.Concatenation(apperrors.ReasonScratchIO, "scratch area unavailable").Wrap(err)
	}
	defer func() {
		n := session.Cleanup()
		logger.Debug("Removed %d scratch files for run %s", n, session.Token())
	}()

	logger.Info("Run %s: converting %d chunks for %q", session.Token(), len(chunks), meta.Title)

	segments := make([]models.AudioSegment, 0, len(chunks))
	for _, chunk := range chunks {
		seg, err := p.synthesize(ctx, chunk)
		if err != nil {
			logger.Error("Run %s: chunk %d/%d failed: %v", session.Token(), chunk.Index, len(chunks), err)
			return nil, err
		}
		segments = append(segments, seg)
		p.metrics.chunks.Add(ctx, 1)
	}

	artifact, err := p.audio.Concatenate(ctx, session, segments, meta)
	if err != nil {
		return nil, err
	}

	res := &Result{SessionID: session.Token(), Chunks: len(chunks)}
	finalPath := artifact.Path
	res.InitialReport = p.audio.Validate(ctx, finalPath, reqs)
	res.Report = res.InitialReport

	if !res.InitialReport.Valid {
		logger.Warn("Run %s: artifact invalid: %v", session.Token(), res.InitialReport.Errors)
		repaired, err := p.audio.Repair(ctx, finalPath, res.InitialReport, reqs)
		if err != nil {
			return nil, err
		}
		if repaired != finalPath {
			session.Track(repaired)
			finalPath = repaired
			res.Repaired = true
		}
		res.Report = p.audio.Validate(ctx, finalPath, reqs)
		if !res.Report.Valid {
			logger.Warn("Run %s: artifact still invalid after repair: %v", session.Token(), res.Report.Errors)
		}
	}

	res.Audio, err = os.ReadFile(finalPath)
	if err != nil {
		return nil, apperrors.Concatenation(apperrors.ReasonScratchIO, "failed to read artifact").Wrap(err)
	}

	logger.Info("Run %s: finished, %s, %d bytes", session.Token(), res.Report, len(res.Audio))
	return res, nil
}
