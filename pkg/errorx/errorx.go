package errorx

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the interaction layer can render a precise
// user-facing message without inspecting error strings.
type Kind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota

	// KindValidation is malformed input. Rejected with no side effect.
	KindValidation

	// KindConfiguration is a missing required mapping. An admin must fix it.
	KindConfiguration

	// KindPermission is an actor lacking authority.
	KindPermission

	// KindNotFound is a referenced entity that does not exist.
	KindNotFound

	// KindConflict is a failed guard: double-claim, double-rate, lost race,
	// duplicate open ticket, consecutive sender.
	KindConflict

	// KindExternal is a failed platform or storage call.
	KindExternal
)

// String returns a string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternal:
		return "external"
	}
	return "unknown"
}

// Error is a classified error with optional context for rendering.
type Error struct {
	// Kind is the classification of the error.
	Kind Kind

	// Message is the human-readable message.
	Message string

	// Meta carries structured context for the renderer, such as the user
	// that already claimed a ticket or an existing rating.
	Meta map[string]string

	// cause is the wrapped error, if any.
	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithMeta attaches a context value to the error and returns it.
func (e *Error) WithMeta(key, value string) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]string)
	}
	e.Meta[key] = value
	return e
}

// New creates a new classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		cause:   err,
	}
}

// KindOf returns the Kind of the error, or KindUnknown if the error is not
// classified.
func KindOf(err error) Kind {
	e := new(Error)
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Meta returns a context value attached to the error.
func Meta(err error, key string) string {
	e := new(Error)
	if errors.As(err, &e) {
		return e.Meta[key]
	}
	return ""
}

// Is reports whether the error is classified as the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
