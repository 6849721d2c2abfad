// Package tts converts text chunks into encoded speech audio.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
)

// Provider is an external speech capability. Implementations return raw MP3
// bytes or an *apperrors.Error of kind synthesis.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, text, voice string) ([]byte, error)

// Name returns a fixed label for function providers.
func (f ProviderFunc) Name() string { return "func" }

// Synthesize calls f.
func (f ProviderFunc) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return f(ctx, text, voice)
}

// Synthesizer guards a Provider: it rejects chunks above the provider's hard
// limit before calling out and rejects output that is not MP3. It makes
// exactly one provider call per chunk and never retries.
type Synthesizer struct {
	provider  Provider
	voice     string
	hardLimit int
}

// NewSynthesizer wraps provider. A hardLimit of zero disables the length check.
func NewSynthesizer(provider Provider, voice string, hardLimit int) *Synthesizer {
	return &Synthesizer{provider: provider, voice: voice, hardLimit: hardLimit}
}

// Provider returns the wrapped provider.
func (s *Synthesizer) Provider() Provider {
	return s.provider
}

// Synthesize converts one chunk into one audio segment.
func (s *Synthesizer) Synthesize(ctx context.Context, chunk models.TextChunk) (models.AudioSegment, error) {
	if s.hardLimit > 0 && chunk.Length > s.hardLimit {
		return models.AudioSegment{}, apperrors.Synthesis(apperrors.ReasonInputTooLong,
			fmt.Sprintf("chunk is %d characters, provider accepts at most %d", chunk.Length, s.hardLimit)).
			WithIndex(chunk.Index)
	}

	data, err := s.provider.Synthesize(ctx, chunk.Text, s.voice)
	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			if appErr.Index == 0 {
				appErr.Index = chunk.Index
			}
			return models.AudioSegment{}, appErr
		}
		return models.AudioSegment{}, apperrors.Synthesis(apperrors.ReasonTransient,
			s.provider.Name()+" synthesis failed").Wrap(err).WithIndex(chunk.Index)
	}

	if len(data) == 0 {
		return models.AudioSegment{}, apperrors.Synthesis(apperrors.ReasonMalformed,
			s.provider.Name()+" returned no audio").WithIndex(chunk.Index)
	}
	if !LooksLikeMP3(data) {
		return models.AudioSegment{}, apperrors.Synthesis(apperrors.ReasonMalformed,
			s.provider.Name()+" returned data that is not MP3").WithIndex(chunk.Index)
	}

	return models.AudioSegment{Index: chunk.Index, Data: data}, nil
}

// LooksLikeMP3 reports whether data starts with an ID3 tag or an MPEG frame sync.
func LooksLikeMP3(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// NewProvider builds the provider selected in cfg.
func NewProvider(cfg *config.TTSConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg)
	case config.ProviderElevenLabs:
		return NewElevenLabsProvider(cfg)
	case config.ProviderExec:
		return NewExecProvider(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}
