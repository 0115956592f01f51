package noetic

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of a closed set of categories so
// callers can branch on failure class instead of message text. Workers
// retry only Transient failures (up to max_attempts); an API layer maps
// Kind to HTTP status 1:1.
type Kind int

const (
	// KindUnknown is the zero value; never returned by noetic operations.
	KindUnknown Kind = iota
	// KindNotFound: referenced entity absent or soft-deleted without include flag.
	KindNotFound
	// KindInvalidInput: schema violation, invalid archive name, dimension
	// mismatch, cycle, empty query.
	KindInvalidInput
	// KindConflict: unique constraint violation (e.g. duplicate preferred label).
	KindConflict
	// KindTransient: downstream service (LLM, DB) unavailable; safe to retry.
	KindTransient
	// KindUnsupported: feature or combination not available (e.g. MRL
	// truncation on an unsupported model).
	KindUnsupported
	// KindCancelled: deadline expiry or explicit cancellation.
	KindCancelled
	// KindInternal: bug or invariant violation; always logged, never
	// re-exposed in detail to an external caller.
	KindInternal
)

// String renders the Kind the way it is referenced throughout spec and
// signal text.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindUnsupported:
		return "unsupported"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the error type every noetic operation returns. It carries a
// Kind for programmatic classification alongside a human-readable message
// and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "archive.create_note"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, noetic.NotFound("", "")) style checks, and more
// usefully errors.As to pull the Kind out directly.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// NewError constructs a classified error. Components wrap it in their own
// constructors (NotFound, InvalidInput, ...) so call sites all read the
// same way: "op: message: %w".
func NewError(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// NotFound builds a KindNotFound error. Messages for a concrete entity
// always name the entity kind and id.
func NotFound(op, message string) *Error {
	return NewError(KindNotFound, op, message, nil)
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(op, message string) *Error {
	return NewError(KindInvalidInput, op, message, nil)
}

// Conflict builds a KindConflict error.
func Conflict(op, message string) *Error {
	return NewError(KindConflict, op, message, nil)
}

// Transient builds a KindTransient error, wrapping the downstream cause.
func Transient(op, message string, cause error) *Error {
	return NewError(KindTransient, op, message, cause)
}

// Unsupported builds a KindUnsupported error.
func Unsupported(op, message string) *Error {
	return NewError(KindUnsupported, op, message, nil)
}

// Cancelled builds a KindCancelled error.
func Cancelled(op, message string) *Error {
	return NewError(KindCancelled, op, message, nil)
}

// Internal builds a KindInternal error, wrapping the underlying bug or
// invariant violation. Callers must never format Cause into a response
// visible outside the process.
func Internal(op, message string, cause error) *Error {
	return NewError(KindInternal, op, message, cause)
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error, and
// KindInternal otherwise — an un-classified error reaching an API
// boundary is treated as a bug, never leaked verbatim.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
