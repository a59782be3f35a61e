// Error taxonomy for the conditioning pipeline.
//
// Two fatal classes are defined here. ValidationError covers malformed or
// conflicting configuration; PreconditionError covers recordings that
// already bear filtering provenance. Both abort the run before the
// transform is invoked. Use errors.As (or the Is* helpers) for typed
// assertions rather than string matching.
package types

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or conflicting configuration input.
type ValidationError struct {
	// Field is the parameter or auxiliary kind at fault.
	Field string
	// Reason describes what was wrong with the value.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError creates a validation error for the named field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// PreconditionError reports that the recording was already processed by
// the transform. This is a hard stop: no retry, no degraded path.
type PreconditionError struct {
	// Flag is the provenance flag that tripped the guard ("sss" or "tsss").
	Flag string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("recording already Maxwell-filtered (%s provenance flag set); "+
		"the filter must not be applied twice", e.Flag)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
