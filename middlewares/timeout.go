package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pinspot/api/internal/app"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// Timeout puts a deadline on the request context. The handler runs on the
// calling goroutine and is expected to honour ctx; once it returns past the
// deadline without having written, the result is a *TimeoutError.
func Timeout(d time.Duration) app.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(next app.HandlerFunc) app.HandlerFunc {
		return func(c app.Context) error {
			parent := c.Request().Context()
			ctx, cancel := context.WithTimeout(parent, d)
			defer cancel()
			c.WithContext(ctx)

			err := next(c)
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) || parent.Err() != nil {
				return err
			}
			if c.Written() && err == nil {
				return nil
			}
			c.Logger().WarnContext(c, "request timeout", slog.Duration("timeout", d))
			return &TimeoutError{Duration: d}
		}
	}
}
