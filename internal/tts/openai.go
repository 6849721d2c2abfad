package tts

import (
	"context"
	"errors"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
)

// OpenAIProvider synthesizes speech with the OpenAI audio API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates a provider from cfg. The client's own retries are
// disabled; retry policy belongs to the pipeline.
func NewOpenAIProvider(cfg *config.TTSConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai provider requires an API key")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}, nil
}

// Name returns the provider label.
func (p *OpenAIProvider) Name() string { return "OpenAI" }

// Synthesize requests MP3 audio for text.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	resp, err := p.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(p.model),
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			reason := reasonForStatus(apiErr.StatusCode, apiErr.Message)
			return nil, apperrors.Synthesis(reason, "OpenAI speech request failed").Wrap(err)
		}
		return nil, apperrors.Synthesis(apperrors.ReasonTransient, "OpenAI speech request failed").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Synthesis(apperrors.ReasonTransient, "failed to read OpenAI response").Wrap(err)
	}
	return audio, nil
}
