package session

import (
	"context"
	"time"
)

// Store persists sessions. Get looks a session up by its cookie token and
// fails with ErrNotFound or ErrExpired; the other methods key by ID.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	// Update saves s, including a rotated token.
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Touch records activity without extending the expiry.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error
}
