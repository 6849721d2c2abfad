package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/models"
	"github.com/richardsimms/SpeasyTTS/pkg/logger"
)

// Submitter accepts conversion requests.
type Submitter interface {
	Submit(ctx context.Context, req models.ConversionRequest) (*models.Conversion, error)
}

// IntakeReply is sent back to requesters that set a reply subject.
type IntakeReply struct {
	Conversion *models.Conversion `json:"conversion,omitempty"`
	Error      string             `json:"error,omitempty"`
	ErrorKind  string             `json:"error_kind,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	// Retryable is set when the same request may be accepted later.
	Retryable bool `json:"retryable,omitempty"`
}

// Intake turns NATS request messages into conversion submissions.
type Intake struct {
	conn      *nats.Conn
	subject   string
	submitter Submitter
	timeout   time.Duration

	sub *nats.Subscription
}

// NewIntake creates an intake for subject. Start subscribes.
func NewIntake(conn *nats.Conn, subject string, submitter Submitter) *Intake {
	return &Intake{
		conn:      conn,
		subject:   subject,
		submitter: submitter,
		timeout:   10 * time.Second,
	}
}

// Start subscribes to the request subject.
func (i *Intake) Start() error {
	sub, err := i.conn.Subscribe(i.subject, i.handle)
	if err != nil {
		return err
	}
	i.sub = sub
	logger.Info("Listening for conversion requests on %s", i.subject)
	return nil
}

// Close drains the subscription so queued requests are still answered.
func (i *Intake) Close() {
	if i.sub == nil {
		return
	}
	if err := i.sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		logger.Warn("Failed to drain intake subscription: %v", err)
	}
}

func (i *Intake) handle(msg *nats.Msg) {
	var req models.ConversionRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		logger.Warn("Failed to decode conversion request: %v", err)
		i.reply(msg, IntakeReply{Error: "invalid request payload", ErrorKind: apperrors.KindInvalidInput.String()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	conv, err := i.submitter.Submit(ctx, req)
	if err != nil {
		logger.Warn("Rejected conversion request: %v", err)
		i.reply(msg, IntakeReply{
			Error:     err.Error(),
			ErrorKind: apperrors.KindOf(err).String(),
			Reason:    string(apperrors.ReasonOf(err)),
			Retryable: apperrors.IsRetryable(err),
		})
		return
	}
	i.reply(msg, IntakeReply{Conversion: conv})
}

func (i *Intake) reply(msg *nats.Msg, r IntakeReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		logger.Error("Failed to marshal intake reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		logger.Warn("Failed to reply to conversion request: %v", err)
	}
}
