// Package notify publishes conversion outcomes to interested parties.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// Event subject suffixes.
const (
	SuffixCompleted = "completed"
	SuffixFailed    = "failed"
)

// Event describes how a conversion ended.
type Event struct {
	ConversionID    string                   `json:"conversion_id"`
	Status          models.ConversionStatus  `json:"status"`
	Title           string                   `json:"title,omitempty"`
	Episode         int                      `json:"episode,omitempty"`
	Location        string                   `json:"location,omitempty"`
	ArtifactKey     string                   `json:"artifact_key,omitempty"`
	Chunks          int                      `json:"chunks,omitempty"`
	DurationSeconds float64                  `json:"duration_seconds,omitempty"`
	SizeBytes       int64                    `json:"size_bytes,omitempty"`
	Repaired        bool                     `json:"repaired"`
	Report          *models.ValidationReport `json:"report,omitempty"`
	ErrorKind       string                   `json:"error_kind,omitempty"`
	ErrorMessage    string                   `json:"error_message,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
}

// Succeeded reports whether the run produced audio, valid or not.
func (e Event) Succeeded() bool {
	return e.Status == models.ConversionStatusCompleted || e.Status == models.ConversionStatusInvalid
}

// Notifier delivers events. Delivery failures never change a conversion's
// recorded outcome.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Publisher is the part of *nats.Conn used for events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSNotifier publishes JSON events under a subject base: runs that
// produced audio go to <base>.completed and failures to <base>.failed.
type NATSNotifier struct {
	pub  Publisher
	base string
}

// NewNATSNotifier creates a notifier publishing under base.
func NewNATSNotifier(pub Publisher, base string) *NATSNotifier {
	return &NATSNotifier{pub: pub, base: strings.TrimSuffix(base, ".")}
}

// Subject returns the subject an event is published on.
func (n *NATSNotifier) Subject(e Event) string {
	if e.Succeeded() {
		return n.base + "." + SuffixCompleted
	}
	return n.base + "." + SuffixFailed
}

// Notify publishes e.
func (n *NATSNotifier) Notify(_ context.Context, e Event) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.pub.Publish(n.Subject(e), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// LogNotifier writes events to the log.
type LogNotifier struct{}

// Notify logs e.
func (LogNotifier) Notify(_ context.Context, e Event) error {
	if e.Succeeded() {
		logger.Info("Conversion %s %s: %s (%d chunks, %.1fs, repaired: %t)",
			e.ConversionID, e.Status, e.Location, e.Chunks, e.DurationSeconds, e.Repaired)
		return nil
	}
	logger.Info("Conversion %s failed (%s): %s", e.ConversionID, e.ErrorKind, e.ErrorMessage)
	return nil
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

// Notify delivers e to every notifier.
func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
