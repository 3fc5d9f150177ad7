package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failed platform interaction. Each kind maps to one
// recovery policy in the request client.
type Kind string

const (
	// KindUnauthorized means the identity was not accepted (HTTP 401 or a
	// "not logged in" application code). Rotate identity, retry once.
	KindUnauthorized Kind = "unauthorized"
	// KindBlocked means the identity or egress IP is banned (HTTP 403,
	// empty body, or an explicit block page). Rotate identity, retry once.
	KindBlocked Kind = "blocked"
	// KindRateLimited means the request was throttled (HTTP 429). Sleep
	// and retry with the same identity.
	KindRateLimited Kind = "rate_limited"
	// KindSignFailure means no anti-automation token could be produced.
	KindSignFailure Kind = "sign_failure"
	// KindTransport covers network errors, timeouts and malformed bodies.
	KindTransport Kind = "transport"
	// KindApplication is a non-zero application status code that matches
	// no other kind. Data may still be usable.
	KindApplication Kind = "application"
	// KindIdentityExhausted means no usable credential remains after the
	// maximum number of rotation attempts. Fatal for the run.
	KindIdentityExhausted Kind = "identity_exhausted"
)

// Error is a classified platform error.
type Error struct {
	Kind    Kind
	Message string
	// Code carries the HTTP status or the application status code,
	// whichever triggered the classification.
	Code int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New builds a classified error.
func New(kind Kind, message string, code int) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Code: code}
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report KindTransport since they almost always originate in I/O.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsIdentityError reports whether the error indicates the current
// identity is bad and must be rotated before retrying.
func IsIdentityError(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindBlocked:
		return true
	}
	return false
}

// IsRetryable reports whether a same-identity retry can help.
// Rate limiting is handled by its own sleep policy, not here.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransport
}
