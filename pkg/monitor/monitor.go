// Package monitor binds the process to Sentry: SDK setup, the request
// middleware that opens a hub and transaction per request, and the flush
// performed on shutdown. Everything is a no-op without a DSN.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
)

var ErrInit = errors.New("monitor: sentry init failed")

type Config struct {
	DSN              string  `env:"SENTRY_DSN"`
	Environment      string  `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	TracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" envDefault:"0"`
}

// Monitor is returned by Init. A zero Monitor is disabled.
type Monitor struct {
	enabled bool
}

// Init configures the global Sentry client. An empty DSN yields a disabled
// monitor and no error.
func Init(cfg Config, release string) (*Monitor, error) {
	if cfg.DSN == "" {
		return &Monitor{}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		EnableTracing:    cfg.TracesSampleRate > 0,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableLogs:       true,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInit, err)
	}
	return &Monitor{enabled: true}, nil
}

// Enabled reports whether events are being sent.
func (m *Monitor) Enabled() bool { return m != nil && m.enabled }

// Middleware wraps the whole server so every request carries its own hub.
// Handler panics are caught by the recover plugin further in, which writes
// the 500 itself; only a panic escaping the app stack reaches this layer,
// where it is captured and re-raised to net/http.
func (m *Monitor) Middleware() func(http.Handler) http.Handler {
	if !m.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	h := sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
	return h.Handle
}

// Flush drains buffered events within ctx's deadline (2s when unset).
func (m *Monitor) Flush(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	timeout := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	sentry.Flush(timeout)
	return nil
}

// HubFromRequest returns the request's hub or the global one.
func HubFromRequest(r *http.Request) *sentry.Hub {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// Capture reports err on the request's hub with the given tags.
func Capture(r *http.Request, err error, tags map[string]string) {
	hub := HubFromRequest(r)
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTags(tags)
		hub.CaptureException(err)
	})
}
