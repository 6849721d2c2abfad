// Package audio joins, tags, inspects and re-encodes audio using FFmpeg.
package audio

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// CommandRunner executes an external program and returns its output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	// #nosec G204 - binary paths come from config, args are constructed internally
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Service handles audio processing operations using FFmpeg.
type Service struct {
	ffmpegPath    string
	ffprobePath   string
	repairBitrate int
	product       string
	runner        CommandRunner
}

// Option configures a Service.
type Option func(*Service)

// WithCommandRunner replaces the process runner, mainly for tests.
func WithCommandRunner(r CommandRunner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

// WithProduct sets the artist name stamped into tags.
func WithProduct(product string) Option {
	return func(s *Service) {
		s.product = product
	}
}

// NewService creates a new audio processing service.
func NewService(cfg *config.AudioConfig, opts ...Option) *Service {
	s := &Service{
		ffmpegPath:    cfg.FFmpegPath,
		ffprobePath:   cfg.FFprobePath,
		repairBitrate: cfg.RepairBitrate,
		product:       "SpeasyTTS",
		runner:        osCommandRunner{},
	}
	if s.ffmpegPath == "" {
		s.ffmpegPath = "ffmpeg"
	}
	if s.ffprobePath == "" {
		s.ffprobePath = "ffprobe"
	}
	if s.repairBitrate <= 0 {
		s.repairBitrate = DefaultRepairBitrate
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FFmpegPath returns the encoder binary this service invokes.
func (s *Service) FFmpegPath() string {
	return s.ffmpegPath
}

// FFprobePath returns the inspection binary this service invokes.
func (s *Service) FFprobePath() string {
	return s.ffprobePath
}

func (s *Service) ffmpeg(ctx context.Context, args ...string) (string, error) {
	logger.Debug("Executing FFmpeg command: %s %s", s.ffmpegPath, strings.Join(args, " "))
	_, stderr, err := s.runner.Run(ctx, s.ffmpegPath, args...)
	return strings.TrimSpace(string(stderr)), err
}
