package timeline

import (
	"errors"
	"fmt"
)

// PreconditionError reports a fatal input violation: a missing or invalid
// required field, a non-positive rate, or malformed command parameters.
// Preconditions fail closed - there is no default substitution.
type PreconditionError struct {
	// Op names the operation that rejected its input.
	Op string

	// Field names the offending field, when one can be identified.
	Field string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: precondition violated on %s: %s", e.Op, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: precondition violated: %s", e.Op, e.Message)
}

// Preconditionf constructs a PreconditionError.
func Preconditionf(op, field, format string, args ...any) error {
	return &PreconditionError{Op: op, Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsPrecondition reports whether err is (or wraps) a PreconditionError.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// TypeMismatchError reports an attempt to place a clip on a track of a
// different kind. This is fatal, never a silent reinterpretation.
type TypeMismatchError struct {
	ClipID    string
	ClipKind  TrackKind
	TrackID   string
	TrackKind TrackKind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("clip %s (%s) cannot be placed on track %s (%s)",
		e.ClipID, e.ClipKind, e.TrackID, e.TrackKind)
}

// IsTypeMismatch reports whether err is (or wraps) a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	var te *TypeMismatchError
	return errors.As(err, &te)
}
