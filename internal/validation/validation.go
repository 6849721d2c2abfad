// Package validation collects field-level problems with conversion requests.
package validation

import (
	"fmt"
	"strings"

	"github.com/richardsimms/SpeasyTTS/internal/apperrors"
)

// FieldError names one rejected request field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Result accumulates problems in the order they were found.
type Result struct {
	Valid  bool
	Errors []FieldError
}

// New returns an empty, valid Result.
func New() *Result {
	return &Result{Valid: true}
}

// AddError records a problem with field.
func (r *Result) AddError(field, message string) *Result {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
	r.Valid = false
	return r
}

// AddErrorf is AddError with a formatted message.
func (r *Result) AddErrorf(field, format string, args ...any) *Result {
	return r.AddError(field, fmt.Sprintf(format, args...))
}

// Merge appends the problems of other.
func (r *Result) Merge(other *Result) *Result {
	if other != nil {
		for _, e := range other.Errors {
			r.AddError(e.Field, e.Message)
		}
	}
	return r
}

// ToError returns nil for a valid result. A single problem keeps its field
// name; several are folded into one invalid-input message.
func (r *Result) ToError() *apperrors.Error {
	switch len(r.Errors) {
	case 0:
		return nil
	case 1:
		return apperrors.InvalidField(r.Errors[0].Field, r.Errors[0].Message)
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.String()
	}
	return apperrors.InvalidInput(strings.Join(parts, "; "))
}
