package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/richardsimms/SpeasyTTS/internal/config"
)

func TestSetup_ExposesInstruments(t *testing.T) {
	cfg := config.Default()
	tel, err := Setup(&cfg)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	counter, err := otel.Meter("telemetry-test").Int64Counter("speasy.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(tel.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "speasy_test_events")
}

func TestServe_StopsWithContext(t *testing.T) {
	cfg := config.Default()
	tel, err := Setup(&cfg)
	require.NoError(t, err)
	defer func() { _ = tel.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tel.Serve(ctx, "127.0.0.1:0") }()
	cancel()
	assert.NoError(t, <-done)
}
