// Package apperr is the error taxonomy every boundary maps failures into.
package apperr

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindLocked
	KindForbidden
	KindNotFound
)

const internalMessage = "Internal server error"

// Error is a classified failure with a client-safe message.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed input.
func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }

// Unauthorized reports a missing or rejected credential.
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }

// Locked reports a temporarily suspended account.
func Locked(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindLocked, Message: msg, RetryAfter: retryAfter}
}

// Forbidden reports an insufficient role.
func Forbidden(msg string) *Error { return &Error{Kind: KindForbidden, Message: msg} }

// NotFound reports an absent referenced entity.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Internal wraps an unexpected failure. Its message never reaches clients.
func Internal(err error) *Error { return &Error{Kind: KindInternal, Message: internalMessage, Err: err} }

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps err to its HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindLocked:
		return http.StatusLocked
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return internalMessage
}

// RetryAfter returns the retry hint carried by a locked error.
func RetryAfter(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
