// Package statismoerr defines the error taxonomy shared by every
// statismo-go component, mirroring the single status enum a persistence
// or scripting wrapper would translate into its own error channel.
package statismoerr

import "fmt"

// ErrorKind categorizes the failures the core can raise.
type ErrorKind string

const (
	// BadVersion indicates a persisted model record with an unsupported
	// version field. The core never raises it itself; it exists so an
	// external I/O layer can reuse this taxonomy.
	BadVersion ErrorKind = "bad_version"
	// BadInput indicates an empty sample set, inconsistent representers,
	// or a vector length mismatch.
	BadInput ErrorKind = "bad_input"
	// IO is reserved for the external I/O collaborator; the core never
	// raises it.
	IO ErrorKind = "io"
	// OutOfRange indicates a point index or component index out of bounds.
	OutOfRange ErrorKind = "out_of_range"
	// InvalidData indicates NaN/Inf in sample data or a non-SPD
	// observation covariance.
	InvalidData ErrorKind = "invalid_data"
	// InvalidH5Field is reserved for the external I/O collaborator.
	InvalidH5Field ErrorKind = "invalid_h5_field"
	// InvalidH5Data is reserved for the external I/O collaborator.
	InvalidH5Data ErrorKind = "invalid_h5_data"
	// NotImplemented indicates a requested operation has no implementation.
	NotImplemented ErrorKind = "not_implemented"
	// Internal indicates an all-zero spectrum after tolerance or another
	// unexpected numeric failure.
	Internal ErrorKind = "internal"
	// Unknown is the catch-all kind.
	Unknown ErrorKind = "unknown"
)

// Error is the structured error every statismo-go operation returns.
type Error struct {
	Kind    ErrorKind
	Message string
	Context map[string]interface{}
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewBadInput creates a BadInput error.
func NewBadInput(message string) *Error {
	return &Error{Kind: BadInput, Message: message}
}

// NewOutOfRange creates an OutOfRange error carrying the offending index
// and the valid bound.
func NewOutOfRange(message string, index, bound int) *Error {
	return &Error{
		Kind:    OutOfRange,
		Message: message,
		Context: map[string]interface{}{"index": index, "bound": bound},
	}
}

// NewInvalidData creates an InvalidData error.
func NewInvalidData(message string) *Error {
	return &Error{Kind: InvalidData, Message: message}
}

// NewInternal creates an Internal error, optionally wrapping a cause.
func NewInternal(message string, cause error) *Error {
	return &Error{Kind: Internal, Message: message, Cause: cause}
}

// NewNotImplemented creates a NotImplemented error.
func NewNotImplemented(message string) *Error {
	return &Error{Kind: NotImplemented, Message: message}
}

// NewDimensionMismatch creates a BadInput error describing a length
// mismatch between an expected and an actual vector length.
func NewDimensionMismatch(message string, expected, actual int) *Error {
	return &Error{
		Kind:    BadInput,
		Message: message,
		Context: map[string]interface{}{"expected": expected, "actual": actual},
	}
}
