package apperrors

import (
	"errors"

	"github.com/richardsimms/SpeasyTTS/internal/repository"
)

// TranslateRepoError converts repository errors to domain errors with operation context.
// Returns nil if err is nil. The operation name is prefixed to provide call-site context.
func TranslateRepoError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, repository.ErrNotFound) {
		return NotFound(op + ": conversion not found").Wrap(err)
	}
	return Database(op + ": database operation failed").Wrap(err)
}

// KindOf extracts the Kind of err, or KindUnknown if err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// ReasonOf extracts the Reason of err, or ReasonNone if err carries none.
func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ReasonNone
}

// IsRetryable reports whether err is an *Error with a retryable reason.
func IsRetryable(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Retryable()
}
