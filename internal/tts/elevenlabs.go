package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// APIError represents an error response from a speech API with the HTTP status code preserved.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Sprintf("%s API key is invalid or expired", e.Provider)
	case http.StatusForbidden:
		return fmt.Sprintf("%s API key does not have access to this resource", e.Provider)
	case http.StatusNotFound:
		return fmt.Sprintf("%s voice not found, check the voice configuration", e.Provider)
	case http.StatusTooManyRequests:
		return fmt.Sprintf("%s API rate limit or quota exceeded", e.Provider)
	case http.StatusUnprocessableEntity:
		return fmt.Sprintf("%s rejected the request: %s", e.Provider, e.Body)
	default:
		return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
}

// Reason maps the HTTP status to a synthesis failure reason.
func (e *APIError) Reason() apperrors.Reason {
	return reasonForStatus(e.StatusCode, e.Body)
}

func reasonForStatus(status int, body string) apperrors.Reason {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.ReasonRateLimited
	case status == http.StatusRequestTimeout || status >= 500:
		return apperrors.ReasonTransient
	case status == http.StatusRequestEntityTooLarge:
		return apperrors.ReasonInputTooLong
	case strings.Contains(strings.ToLower(body), "too long"):
		return apperrors.ReasonInputTooLong
	default:
		return apperrors.ReasonRejected
	}
}

// ElevenLabsProvider handles text-to-speech generation via the ElevenLabs API.
type ElevenLabsProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewElevenLabsProvider creates a provider from cfg. An API key is required.
func NewElevenLabsProvider(cfg *config.TTSConfig) (*ElevenLabsProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("elevenlabs provider requires an API key")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "tts-") {
		model = "eleven_multilingual_v2"
	}

	return &ElevenLabsProvider{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}, nil
}

// Name returns the provider label.
func (p *ElevenLabsProvider) Name() string { return "ElevenLabs" }

// ttsRequest is the JSON body sent to the ElevenLabs API.
type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize converts text to speech audio using the ElevenLabs API.
// Returns the raw MP3 audio bytes.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: p.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=mp3_44100_128", p.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS request: %w", err)
	}

	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	//nolint:gosec // voiceID comes from configuration, not request input
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.Synthesis(apperrors.ReasonTransient, "ElevenLabs request failed").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := &APIError{Provider: p.Name(), StatusCode: resp.StatusCode, Body: string(respBody)}
		return nil, apperrors.Synthesis(apiErr.Reason(), apiErr.Error()).Wrap(apiErr)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Synthesis(apperrors.ReasonTransient, "failed to read ElevenLabs response").Wrap(err)
	}

	return audio, nil
}
