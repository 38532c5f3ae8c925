package filedock

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a folder, file or stored object does not exist
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when input validation fails
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a uniqueness rule or emptiness precondition is violated
	ErrConflict = errors.New("conflict")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrUnauthorized is returned when presigned URL verification fails
	ErrUnauthorized = errors.New("unauthorized")
)

// Kind classifies an Error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal_error"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

// Error is the tagged error returned by the folder, file and coordinator services.
// Message is safe to show to API clients; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching the error's kind,
// so errors.Is(err, ErrNotFound) works for both tagged and wrapped sentinel errors.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ValidationErrorf builds a KindValidation error.
func ValidationErrorf(format string, args ...any) error {
	return newError(KindValidation, nil, format, args...)
}

// NotFoundError builds a KindNotFound error wrapping cause.
func NotFoundError(message string, cause error) error {
	return newError(KindNotFound, cause, "%s", message)
}

// ConflictError builds a KindConflict error wrapping cause.
func ConflictError(message string, cause error) error {
	return newError(KindConflict, cause, "%s", message)
}

// KindOf classifies any error. Tagged errors report their own kind; plain
// errors wrapping one of the sentinels are classified by the sentinel.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// MessageOf returns the client-facing message of a tagged error, or fallback.
func MessageOf(err error, fallback string) string {
	var tagged *Error
	if errors.As(err, &tagged) && tagged.Message != "" {
		return tagged.Message
	}
	return fallback
}

// classify wraps a repository or object store error into a tagged error,
// keeping kinds that adapters already attached through sentinels.
func classify(err error, notFound, conflict string) error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError(notFound, err)
	case errors.Is(err, ErrConflict):
		return ConflictError(conflict, err)
	case errors.Is(err, ErrValidation):
		return newError(KindValidation, err, "invalid input")
	default:
		return newError(KindInternal, err, "internal error")
	}
}
