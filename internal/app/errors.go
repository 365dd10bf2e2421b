package app

import (
	"errors"
	"net/http"
)

var (
	ErrOutOfOrder = errors.New("app: phase called out of order")
	ErrSealed     = errors.New("app: router is sealed")
	ErrNotStarted = errors.New("app: server is not running")
	ErrNoHandler  = errors.New("app: nil handler")
)

// HTTPError is an error with a status code and a message safe to show.
type HTTPError struct {
	Err     error
	Message string
	Details any
	Code    int
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

type HTTPErrorOption func(*HTTPError)

// WithCause attaches the underlying error.
func WithCause(err error) HTTPErrorOption {
	return func(e *HTTPError) { e.Err = err }
}

// WithDetails attaches structured details rendered next to the message.
func WithDetails(d any) HTTPErrorOption {
	return func(e *HTTPError) { e.Details = d }
}

func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func ErrBadRequest(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, msg, opts...)
}

func ErrUnauthorized(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, msg, opts...)
}

func ErrForbidden(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, msg, opts...)
}

func ErrNotFound(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, msg, opts...)
}

func ErrMethodNotAllowed(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusMethodNotAllowed, msg, opts...)
}

func ErrConflict(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, msg, opts...)
}

func ErrUnprocessable(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, msg, opts...)
}

func ErrInternal(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, msg, opts...)
}

func ErrServiceUnavailable(msg string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, msg, opts...)
}

// AsHTTPError finds an *HTTPError in err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
