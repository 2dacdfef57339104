package server

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNextCalledTwice is returned to a middleware that invokes its next
// continuation more than once in a single request.
var ErrNextCalledTwice = errors.New("server: middleware called next twice")

// HTTPError carries an HTTP status code alongside an error. Handlers and
// middleware return it to choose the response status; plain errors are
// rendered as 500 by the application's error handler.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *HTTPError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status the error should be rendered with.
func (e *HTTPError) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// NewHTTPError builds an HTTPError with the given status and message.
func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

// WrapHTTPError builds an HTTPError wrapping an underlying cause.
func WrapHTTPError(code int, message string, err error) *HTTPError {
	return &HTTPError{Code: code, Message: message, Err: err}
}

// ErrBadRequest and friends are convenience constructors for common
// statuses.
func ErrBadRequest(message string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message)
}

func ErrUnauthorized(message string) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message)
}

func ErrForbidden(message string) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message)
}

func ErrNotFound(message string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message)
}

func ErrMethodNotAllowed(message string) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, message)
}

func ErrConflict(message string) *HTTPError {
	return NewHTTPError(http.StatusConflict, message)
}

func ErrTooManyRequests(message string) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message)
}

func ErrInternal(message string) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message)
}

func ErrServiceUnavailable(message string) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message)
}

// StatusFromError extracts the HTTP status for err: an *HTTPError anywhere
// in the chain decides; anything else is an internal error.
func StatusFromError(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}
