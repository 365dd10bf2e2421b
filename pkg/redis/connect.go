// Package redis opens go-redis clients and exposes the probe and shutdown
// closures the app runtime expects.
package redis

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Option func(*settings)

type settings struct {
	poolSize    int
	minIdle     int
	idleTime    time.Duration
	attempts    int
	backoff     time.Duration
	ioTimeout   time.Duration
	dialTimeout time.Duration
}

func defaults() settings {
	return settings{
		poolSize:    10,
		minIdle:     2,
		idleTime:    10 * time.Minute,
		attempts:    3,
		backoff:     2 * time.Second,
		ioTimeout:   3 * time.Second,
		dialTimeout: 5 * time.Second,
	}
}

// WithPoolSize sets the connection pool size. Default: 10.
func WithPoolSize(n int) Option {
	return func(s *settings) { s.poolSize = n }
}

// WithRetry sets how many times the startup ping is attempted and the
// linear backoff between attempts. Default: 3 attempts, 2s.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *settings) {
		s.attempts = attempts
		s.backoff = backoff
	}
}

// WithTimeouts sets the dial and read/write timeouts.
func WithTimeouts(dial, io time.Duration) Option {
	return func(s *settings) {
		s.dialTimeout = dial
		s.ioTimeout = io
	}
}

// Open parses a redis:// or rediss:// URL and returns a pinged client.
func Open(ctx context.Context, url string, opts ...Option) (goredis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrInvalidURL
	}

	s := defaults()
	for _, opt := range opts {
		opt(&s)
	}

	ro, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	ro.PoolSize = s.poolSize
	ro.MinIdleConns = s.minIdle
	ro.ConnMaxIdleTime = s.idleTime
	ro.DialTimeout = s.dialTimeout
	ro.ReadTimeout = s.ioTimeout
	ro.WriteTimeout = s.ioTimeout

	var lastErr error
	for i := range max(s.attempts, 1) {
		client := goredis.NewClient(ro)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i+1 < s.attempts {
			if err := sleep(ctx, time.Duration(i+1)*s.backoff); err != nil {
				return nil, errors.Join(ErrConnectionFailed, err)
			}
		}
	}
	return nil, errors.Join(ErrConnectionFailed, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Healthcheck pings the client.
func Healthcheck(client goredis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrUnhealthy
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrUnhealthy, err)
		}
		return nil
	}
}

// Shutdown closes the client when the app stops.
func Shutdown(c io.Closer) func(context.Context) error {
	return func(context.Context) error { return c.Close() }
}
