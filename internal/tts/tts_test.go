package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
)

var fakeMP3 = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0xFF, 0xFB, 0x90, 0x64)

func chunk(index int, text string) models.TextChunk {
	return models.TextChunk{Index: index, Text: text, Length: len([]rune(text))}
}

func TestSynthesizerRejectsOversizedChunkWithoutCalling(t *testing.T) {
	calls := 0
	provider := ProviderFunc(func(context.Context, string, string) ([]byte, error) {
		calls++
		return fakeMP3, nil
	})
	s := NewSynthesizer(provider, "alloy", 10)

	_, err := s.Synthesize(context.Background(), chunk(3, "this chunk is too long"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSynthesis)
	assert.Equal(t, apperrors.ReasonInputTooLong, apperrors.ReasonOf(err))
	assert.Zero(t, calls)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 3, appErr.Index)
}

func TestSynthesizerPassesVoiceAndReturnsSegment(t *testing.T) {
	var gotText, gotVoice string
	provider := ProviderFunc(func(_ context.Context, text, voice string) ([]byte, error) {
		gotText, gotVoice = text, voice
		return fakeMP3, nil
	})
	s := NewSynthesizer(provider, "nova", 4096)

	seg, err := s.Synthesize(context.Background(), chunk(2, "hello there"))

	require.NoError(t, err)
	assert.Equal(t, 2, seg.Index)
	assert.Equal(t, fakeMP3, seg.Data)
	assert.Equal(t, "hello there", gotText)
	assert.Equal(t, "nova", gotVoice)
}

func TestSynthesizerMalformedOutput(t *testing.T) {
	tests := map[string][]byte{
		"empty":   {},
		"not mp3": []byte("RIFF....WAVEfmt "),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			provider := ProviderFunc(func(context.Context, string, string) ([]byte, error) {
				return data, nil
			})
			_, err := NewSynthesizer(provider, "v", 0).Synthesize(context.Background(), chunk(1, "x"))
			assert.Equal(t, apperrors.ReasonMalformed, apperrors.ReasonOf(err))
			assert.True(t, apperrors.IsRetryable(err))
		})
	}
}

func TestSynthesizerWrapsPlainProviderErrors(t *testing.T) {
	provider := ProviderFunc(func(context.Context, string, string) ([]byte, error) {
		return nil, io.ErrUnexpectedEOF
	})
	_, err := NewSynthesizer(provider, "v", 0).Synthesize(context.Background(), chunk(4, "x"))

	assert.ErrorIs(t, err, apperrors.ErrSynthesis)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, apperrors.ReasonTransient, apperrors.ReasonOf(err))
}

func TestLooksLikeMP3(t *testing.T) {
	assert.True(t, LooksLikeMP3([]byte("ID3rest")))
	assert.True(t, LooksLikeMP3([]byte{0xFF, 0xF3, 0x00}))
	assert.False(t, LooksLikeMP3([]byte{0xFF}))
	assert.False(t, LooksLikeMP3([]byte("OggS")))
}

func TestElevenLabsProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))

		var body ttsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body.Text)
		assert.Equal(t, "eleven_multilingual_v2", body.ModelID)

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(fakeMP3)
	}))
	defer srv.Close()

	p, err := NewElevenLabsProvider(&config.TTSConfig{APIKey: "key", BaseURL: srv.URL, RequestTimeout: 5 * time.Second})
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "Hello", "voice-1")
	require.NoError(t, err)
	assert.Equal(t, fakeMP3, audio)
}

func TestElevenLabsStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   apperrors.Reason
	}{
		{http.StatusTooManyRequests, "quota", apperrors.ReasonRateLimited},
		{http.StatusBadGateway, "upstream", apperrors.ReasonTransient},
		{http.StatusUnauthorized, "nope", apperrors.ReasonRejected},
		{http.StatusBadRequest, "text too long", apperrors.ReasonInputTooLong},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := NewElevenLabsProvider(&config.TTSConfig{APIKey: "key", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = p.Synthesize(context.Background(), "Hello", "v")
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.ReasonOf(err))

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hi", body["input"])
		assert.Equal(t, "nova", body["voice"])
		assert.Equal(t, "mp3", body["response_format"])
		_, _ = w.Write(fakeMP3)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(&config.TTSConfig{APIKey: "sk", BaseURL: srv.URL + "/", Model: "tts-1"})
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "Hi", "nova")
	require.NoError(t, err)
	assert.Equal(t, fakeMP3, audio)
}

func TestOpenAIProviderRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(&config.TTSConfig{APIKey: "sk", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "Hi", "alloy")
	assert.Equal(t, apperrors.ReasonRateLimited, apperrors.ReasonOf(err))
}

func TestExecProvider(t *testing.T) {
	p, err := NewExecProvider(`sh -c 'cat >/dev/null; echo "{\"audio_base64\":\"SUQz\"}"; echo "{\"audio_base64\":\"AAA=\",\"final\":true}"'`)
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "text", "voice")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3\x00\x00"), audio)
}

func TestExecProviderFailure(t *testing.T) {
	p, err := NewExecProvider(`sh -c 'echo boom >&2; exit 3'`)
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "text", "voice")
	assert.ErrorIs(t, err, apperrors.ErrSynthesis)

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Internal, "boom")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(&config.TTSConfig{Provider: config.ProviderOpenAI})
	assert.Error(t, err, "api key required")

	p, err := NewProvider(&config.TTSConfig{Provider: config.ProviderExec, Command: "cat"})
	require.NoError(t, err)
	assert.Equal(t, "exec:cat", p.Name())

	_, err = NewProvider(&config.TTSConfig{Provider: "polly"})
	assert.Error(t, err)
}
