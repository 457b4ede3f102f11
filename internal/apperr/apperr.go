// Package apperr defines the error kinds surfaced by the authorization core.
// The HTTP layer maps each kind to a status code; the core never returns
// transport-specific errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at a component boundary.
type Kind int

const (
	// KindInternal is any failure that is not one of the domain kinds below.
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	// KindMisconfigured means bootstrap data (e.g. the default role) is missing.
	KindMisconfigured
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
	case KindMisconfigured:
		return "misconfigured"
	default:
		return "internal"
	}
}

// Reasons recorded on Unauthorized errors. They are for logs and tests only.
const (
	ReasonUnknownEmail = "unknown_email"
	ReasonBadPassword  = "bad_password"
	ReasonDisabled     = "disabled"
	ReasonMissingUser  = "missing_user"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
	ReasonNoToken      = "no_token"
)

// Error is the single error type returned by the core for domain failures.
type Error struct {
	Kind    Kind
	Message string
	// Reason is an internal distinction that must not reach the client.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// BadRequest returns a KindBadRequest error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a KindUnauthorized error with an internal reason.
func Unauthorized(message, reason string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Reason: reason}
}

// Forbidden returns a KindForbidden error.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Misconfigured returns a KindMisconfigured error.
func Misconfigured(format string, args ...any) *Error {
	return &Error{Kind: KindMisconfigured, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf reports the internal reason attached to err, if any.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
