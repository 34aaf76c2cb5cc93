// Package apperror defines the typed failure kinds shared by every service
// in the practice API. Services return these instead of ad-hoc errors so a
// denial or a scheduling conflict can never be swallowed as a generic
// failure; the HTTP layer translates kinds to status codes.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified application error. Details carries structured
// evidence (e.g. the colliding appointments for a Conflict) that is safe to
// return to the caller. Forbidden and NotFound errors must never place the
// target record's identifiers in Message or Details.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// BadRequest reports malformed or invalid input.
func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized reports a missing or invalid caller identity.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports an authenticated caller with insufficient rights. The
// message is intentionally generic so it does not leak whether the target
// record exists.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound reports an absent record. Only the resource name is echoed, never
// the looked-up identifier.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// Conflict reports a state collision, carrying the colliding records as
// evidence so the caller can self-service a reschedule.
func Conflict(msg string, details interface{}) *Error {
	return &Error{Kind: KindConflict, Message: msg, Details: details}
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the Kind from err, or KindInternal when err is not an
// application error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
