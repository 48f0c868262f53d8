// Package apierr defines the error taxonomy surfaced at the HTTP boundary.
package apierr

import (
	"net/http"
	"time"
)

// Error carries an HTTP status together with a user-facing message.
// WaitTime is only set for rate-limited errors.
type Error struct {
	Status   int
	Message  string
	WaitTime time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Unauthorized is a 401 authentication failure.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// NotFound is a 404 for a missing student or lookup target.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// RateLimited is a 429 admission denial; wait is how long until the
// next slot opens.
func RateLimited(message string, wait time.Duration) *Error {
	return &Error{Status: http.StatusTooManyRequests, Message: message, WaitTime: wait}
}

// Unavailable is a 503 for exhausted generation providers.
func Unavailable(message string) *Error {
	return New(http.StatusServiceUnavailable, message)
}
