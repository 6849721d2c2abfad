package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// RetryPolicy bounds per-chunk synthesis retries. Only rate-limit,
// transient and malformed-output failures are retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 1
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = time.Second
	}
	if r.MaxInterval < r.InitialInterval {
		r.MaxInterval = r.InitialInterval
	}
	return r
}

func (r RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.InitialInterval
	b.MaxInterval = r.MaxInterval
	return b
}

func (p *Pipeline) synthesize(ctx context.Context, chunk models.TextChunk) (models.AudioSegment, error) {
	op := func() (models.AudioSegment, error) {
		seg, err := p.synth.Synthesize(ctx, chunk)
		if err != nil && !apperrors.IsRetryable(err) {
			return seg, backoff.Permanent(err)
		}
		return seg, err
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(p.retry.backOff()),
		backoff.WithMaxTries(uint(p.retry.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			p.metrics.retries.Add(ctx, 1)
			logger.Warn("Chunk %d synthesis failed, retrying in %s: %v", chunk.Index, wait, err)
		}),
	)
}
