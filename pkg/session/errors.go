package session

import "errors"

var (
	// ErrNotConfigured means no session middleware is attached to the
	// request.
	ErrNotConfigured = errors.New("session: not configured")

	ErrNotFound = errors.New("session: not found")
	ErrExpired  = errors.New("session: expired")
)
