package services

import (
	"fmt"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
	"github.com/richardsimms/SpeasyTTS/internal/scheduler"
)

var (
	// ErrBusy means the run queue is full. Retrying later may succeed.
	ErrBusy = apperrors.Unavailable(apperrors.ReasonBusy, "conversion service is busy")
	// ErrShuttingDown means the service no longer accepts work.
	ErrShuttingDown = apperrors.Unavailable(apperrors.ReasonShuttingDown, "conversion service is shutting down")
)

// mapSubmitError translates executor errors to service errors.
func mapSubmitError(err error) error {
	switch err {
	case scheduler.ErrQueueFull:
		return ErrBusy
	case scheduler.ErrStopped:
		return ErrShuttingDown
	default:
		return fmt.Errorf("schedule conversion: %w", err)
	}
}
