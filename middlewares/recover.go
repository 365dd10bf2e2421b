package middlewares

import (
	"log/slog"
	"net/http"
	"runtime"

	"github.com/pinspot/api/internal/app"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

type recoverConfig struct {
	stackSize    int
	captureStack bool
}

// RecoverOption configures Recover.
type RecoverOption func(*recoverConfig)

// WithStackSize sets the maximum captured stack size.
func WithStackSize(size int) RecoverOption {
	return func(cfg *recoverConfig) {
		if size > 0 {
			cfg.stackSize = size
		}
	}
}

// WithoutStack disables stack capture.
func WithoutStack() RecoverOption {
	return func(cfg *recoverConfig) {
		cfg.captureStack = false
	}
}

// Recover turns panics into *PanicError so they reach the error handler.
// http.ErrAbortHandler is re-raised, as net/http expects.
func Recover(opts ...RecoverOption) app.Middleware {
	cfg := &recoverConfig{stackSize: DefaultStackSize, captureStack: true}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next app.HandlerFunc) app.HandlerFunc {
		return func(c app.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				var stack []byte
				if cfg.captureStack {
					stack = make([]byte, cfg.stackSize)
					stack = stack[:runtime.Stack(stack, false)]
				}
				c.Logger().ErrorContext(c, "panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Request().URL.Path),
				)
				err = &PanicError{Value: r, Stack: stack}
			}()
			return next(c)
		}
	}
}
