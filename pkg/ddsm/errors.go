package ddsm

import (
	"errors"
	"strings"
)

// Kind classifies driver errors.
type Kind int

// Error kinds.
const (
	// InvalidArgument indicates malformed command parameters, detected before I/O.
	InvalidArgument Kind = iota + 1
	// DeviceUnavailable indicates the device could not be opened.
	DeviceUnavailable
	// Timeout indicates a read deadline expired.
	Timeout
	// IoFailure indicates any other transport error.
	IoFailure
)

// Error implements error, so a Kind can be the target of errors.Is.
func (k Kind) Error() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case DeviceUnavailable:
		return "device unavailable"
	case Timeout:
		return "timeout"
	case IoFailure:
		return "i/o failure"
	}
	return "unknown error"
}

var (
	// ErrClosed indicates the link has been closed.
	ErrClosed = errors.New("link closed")
)

// Error is the error returned by driver operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError creates an Error.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf extracts the Kind from err, 0 if err is not a driver error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = "Multiple errors:"
	for n, err := range e.Errors {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Is reports whether any aggregated error matches target.
func (e *AggregatedError) Is(target error) bool {
	for _, err := range e.Errors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Aggregate returns aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
