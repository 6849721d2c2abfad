package bus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/config"
	"github.com/richardsimms/SpeasyTTS/internal/models"
)

type fakeSubmitter struct {
	mu  sync.Mutex
	got []models.ConversionRequest
}

func (f *fakeSubmitter) requests() []models.ConversionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ConversionRequest(nil), f.got...)
}

func (f *fakeSubmitter) Submit(_ context.Context, req models.ConversionRequest) (*models.Conversion, error) {
	if req.Text == "" {
		return nil, apperrors.InvalidField("text", "text is required")
	}
	if req.Metadata.Title == "overload" {
		return nil, apperrors.Unavailable(apperrors.ReasonBusy, "conversion service is busy")
	}
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()
	return &models.Conversion{ID: "conv-1", Title: req.Metadata.Title, Status: models.ConversionStatusPending}, nil
}

func startClient(t *testing.T) *Client {
	t.Helper()
	srv, err := StartEmbedded("", -1)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	client, err := Connect(config.BusConfig{URL: srv.URL(), ConnectTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	assert.True(t, client.Healthy())
	return client
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(config.BusConfig{})
	assert.Error(t, err)
}

func TestIntake_SubmitsAndReplies(t *testing.T) {
	client := startClient(t)
	sub := &fakeSubmitter{}
	intake := NewIntake(client.Conn(), "speasy.conversions.request", sub)
	require.NoError(t, intake.Start())
	defer intake.Close()

	payload, err := json.Marshal(models.ConversionRequest{
		Text:     "Hello listeners.",
		Metadata: models.PodcastMetadata{Title: "Pilot", Episode: 1},
	})
	require.NoError(t, err)

	msg, err := client.Conn().Request("speasy.conversions.request", payload, 2*time.Second)
	require.NoError(t, err)

	var reply IntakeReply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Empty(t, reply.Error)
	require.NotNil(t, reply.Conversion)
	assert.Equal(t, "conv-1", reply.Conversion.ID)
	assert.Equal(t, models.ConversionStatusPending, reply.Conversion.Status)
	got := sub.requests()
	require.Len(t, got, 1)
	assert.Equal(t, "Pilot", got[0].Metadata.Title)
}

func TestIntake_RejectsBadPayloads(t *testing.T) {
	client := startClient(t)
	intake := NewIntake(client.Conn(), "speasy.conversions.request", &fakeSubmitter{})
	require.NoError(t, intake.Start())
	defer intake.Close()

	tests := []struct {
		name    string
		payload []byte
	}{
		{"malformed json", []byte("{not json")},
		{"empty text", []byte(`{"text":""}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := client.Conn().Request("speasy.conversions.request", tt.payload, 2*time.Second)
			require.NoError(t, err)

			var reply IntakeReply
			require.NoError(t, json.Unmarshal(msg.Data, &reply))
			assert.Nil(t, reply.Conversion)
			assert.NotEmpty(t, reply.Error)
			assert.Equal(t, "invalid_input", reply.ErrorKind)
		})
	}
}

func TestIntake_ReportsRetryableRejection(t *testing.T) {
	client := startClient(t)
	intake := NewIntake(client.Conn(), "speasy.conversions.request", &fakeSubmitter{})
	require.NoError(t, intake.Start())
	defer intake.Close()

	msg, err := client.Conn().Request("speasy.conversions.request",
		[]byte(`{"text":"Hello.","metadata":{"title":"overload"}}`), 2*time.Second)
	require.NoError(t, err)

	var reply IntakeReply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Nil(t, reply.Conversion)
	assert.Equal(t, "unavailable", reply.ErrorKind)
	assert.Equal(t, "busy", reply.Reason)
	assert.True(t, reply.Retryable)
}
