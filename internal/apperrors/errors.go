// Package apperrors provides typed error handling for the conversion pipeline.
// Every failure carries a Kind naming the component that detected it and a
// Reason naming the condition, so callers never inspect message text.
package apperrors

import "fmt"

// Kind categorizes errors by the pipeline stage that raised them.
type Kind int

// Error kinds.
const (
	// KindUnknown indicates an unspecified error type
	KindUnknown Kind = iota
	// KindSegmentation indicates malformed or empty input text
	KindSegmentation
	// KindSynthesis indicates the speech capability failed for a chunk
	KindSynthesis
	// KindConcatenation indicates the join/tag encoder process failed
	KindConcatenation
	// KindValidation indicates the media inspection tool failed
	KindValidation
	// KindRepair indicates the re-encode during repair failed
	KindRepair
	// KindInvalidInput indicates a malformed conversion request
	KindInvalidInput
	// KindNotFound indicates a requested record does not exist
	KindNotFound
	// KindStorage indicates artifact persistence failed
	KindStorage
	// KindDatabase indicates a status record operation failed
	KindDatabase
	// KindUnavailable indicates the service cannot take the request now
	KindUnavailable
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindSegmentation:
		return "segmentation"
	case KindSynthesis:
		return "synthesis"
	case KindConcatenation:
		return "concatenation"
	case KindValidation:
		return "validation"
	case KindRepair:
		return "repair"
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindDatabase:
		return "database"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("unknown_kind_%d", k)
	}
}

// Reason is the specific condition behind an error.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonEmptyText      Reason = "empty_text"
	ReasonInvalidCeiling Reason = "invalid_ceiling"
	ReasonInputTooLong   Reason = "input_too_long"
	ReasonRateLimited    Reason = "rate_limited"
	ReasonTransient      Reason = "transient"
	ReasonRejected       Reason = "rejected"
	ReasonMalformed      Reason = "malformed_output"
	ReasonProcessFailed  Reason = "process_failed"
	ReasonScratchIO      Reason = "scratch_io"
	ReasonProbeFailed    Reason = "probe_failed"
	ReasonBusy           Reason = "busy"
	ReasonShuttingDown   Reason = "shutting_down"
)

// Retryable reports whether repeating the same call may succeed.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonRateLimited, ReasonTransient, ReasonMalformed, ReasonBusy:
		return true
	}
	return false
}

// Error represents a pipeline error with separate user-safe and internal messages.
// The Message field is always safe to expose to clients.
// The Internal field contains debugging details and should only be logged.
type Error struct {
	Kind     Kind   // Stage that raised the error
	Reason   Reason // Specific condition
	Message  string // User-safe message (always exposable)
	Internal string // Internal details (for logging only)
	Index    int    // Optional: 1-based chunk ordinal the error belongs to
	Field    string // Optional: which request field caused the error
	Err      error  // Wrapped underlying error
}

// Error implements the error interface.
// Returns the user-safe message.
func (e *Error) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("%s (chunk %d)", e.Message, e.Index)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's kind. A target that also
// names a reason must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Reason == ReasonNone || t.Reason == e.Reason
}

// Retryable reports whether the failing operation may be repeated.
func (e *Error) Retryable() bool {
	return e.Reason.Retryable()
}

// WithInternal adds internal debugging details to the error.
func (e *Error) WithInternal(format string, args ...any) *Error {
	e.Internal = fmt.Sprintf(format, args...)
	return e
}

// WithField adds field information to the error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithIndex records the chunk ordinal the error belongs to.
func (e *Error) WithIndex(index int) *Error {
	e.Index = index
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// Sentinels for errors.Is matching by kind.
var (
	ErrSegmentation  = &Error{Kind: KindSegmentation}
	ErrSynthesis     = &Error{Kind: KindSynthesis}
	ErrConcatenation = &Error{Kind: KindConcatenation}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRepair        = &Error{Kind: KindRepair}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrDatabase      = &Error{Kind: KindDatabase}
	ErrUnavailable   = &Error{Kind: KindUnavailable}
	ErrEmptyText     = &Error{Kind: KindSegmentation, Reason: ReasonEmptyText}
)

// Segmentation creates a new segmentation error.
func Segmentation(reason Reason, message string) *Error {
	return &Error{Kind: KindSegmentation, Reason: reason, Message: message}
}

// Synthesis creates a new synthesis error.
func Synthesis(reason Reason, message string) *Error {
	return &Error{Kind: KindSynthesis, Reason: reason, Message: message}
}

// Concatenation creates a new concatenation error.
func Concatenation(reason Reason, message string) *Error {
	return &Error{Kind: KindConcatenation, Reason: reason, Message: message}
}

// Validation creates a new validation tooling error.
func Validation(reason Reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

// Repair creates a new repair error.
func Repair(reason Reason, message string) *Error {
	return &Error{Kind: KindRepair, Reason: reason, Message: message}
}

// InvalidInput creates a new invalid input error with the given message.
func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// InvalidField creates an invalid input error for a specific field.
func InvalidField(field, message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message, Field: field}
}

// NotFound creates a new not found error with the given message.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Storage creates a new storage error with the given message.
func Storage(message string) *Error {
	return &Error{Kind: KindStorage, Message: message}
}

// Database creates a new database error with the given message.
func Database(message string) *Error {
	return &Error{Kind: KindDatabase, Message: message}
}

// Unavailable creates an error for requests the service cannot accept now.
func Unavailable(reason Reason, message string) *Error {
	return &Error{Kind: KindUnavailable, Reason: reason, Message: message}
}
