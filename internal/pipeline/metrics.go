package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
)

const meterName = "github.com/richardsimms/SpeasyTTS/pipeline"

type metrics struct {
	runs     metric.Int64Counter
	chunks   metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(meterName)
	runs, err := meter.Int64Counter("speasy.pipeline.runs",
		metric.WithDescription("Pipeline runs by outcome"))
	if err != nil {
		return nil, err
	}
	chunks, err := meter.Int64Counter("speasy.pipeline.chunks",
		metric.WithDescription("Chunks synthesized"))
	if err != nil {
		return nil, err
	}
	retries, err := meter.Int64Counter("speasy.synthesis.retries",
		metric.WithDescription("Synthesis attempts repeated after a retryable failure"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("speasy.pipeline.duration",
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &metrics{runs: runs, chunks: chunks, retries: retries, duration: duration}, nil
}

func (m *metrics) recordRun(ctx context.Context, res *Result, err error, elapsed time.Duration) {
	outcome := "failed"
	switch {
	case err == nil && res.Valid():
		outcome = "valid"
	case err == nil:
		outcome = "invalid"
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if err != nil {
		attrs = append(attrs, attribute.String("error_kind", apperrors.KindOf(err).String()))
	}
	if res != nil && res.Repaired {
		attrs = append(attrs, attribute.Bool("repaired", true))
	}
	set := metric.WithAttributes(attrs...)
	m.runs.Add(ctx, 1, set)
	m.duration.Record(ctx, elapsed.Seconds(), set)
}
