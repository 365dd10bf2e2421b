package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_RejectsBadURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"empty", "", ErrEmptyURL},
		{"http scheme", "http://localhost:6379", ErrInvalidURL},
		{"no scheme", "localhost:6379", ErrInvalidURL},
		{"bad port", "redis://localhost:notaport", ErrInvalidURL},
		{"bad db", "redis://localhost:6379/x", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := Open(context.Background(), tt.url)
			require.ErrorIs(t, err, tt.want)
			require.Nil(t, c)
		})
	}
}

func TestOpen_CancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Port 1 refuses immediately, so the only wait is the backoff.
	_, err := Open(ctx, "redis://127.0.0.1:1/0",
		WithRetry(3, 10*time.Second),
		WithTimeouts(20*time.Millisecond, 20*time.Millisecond),
	)
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrUnhealthy)
}

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	c := &closer{err: errors.New("close failed")}
	err := Shutdown(c)(context.Background())
	require.True(t, c.closed)
	require.EqualError(t, err, "close failed")
}
