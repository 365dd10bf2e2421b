// Package logger builds the process slog.Logger. Records are enriched with
// request-scoped attributes and, when a Sentry client is bound, warnings and
// errors are teed to Sentry.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// Config selects the level and encoding of stdout logs.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Option tunes New.
type Option func(*builder)

type builder struct {
	out        io.Writer
	extractors []Extractor
	hub        *sentry.Hub
}

// WithOutput replaces stdout.
func WithOutput(w io.Writer) Option {
	return func(b *builder) { b.out = w }
}

// WithExtractors adds context extractors, e.g. the request id extractor.
func WithExtractors(ex ...Extractor) Option {
	return func(b *builder) { b.extractors = append(b.extractors, ex...) }
}

// WithSentryHub overrides the hub checked for an active client.
func WithSentryHub(h *sentry.Hub) Option {
	return func(b *builder) { b.hub = h }
}

// New builds a logger from cfg. Sentry receives warnings as logs and errors
// as events only if the hub already has a client (see pkg/monitor).
func New(cfg Config, opts ...Option) *slog.Logger {
	b := &builder{out: os.Stdout, hub: sentry.CurrentHub()}
	for _, opt := range opts {
		opt(b)
	}

	hopts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(b.out, hopts)
	} else {
		h = slog.NewJSONHandler(b.out, hopts)
	}

	if b.hub != nil && b.hub.Client() != nil {
		sh := sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelError},
			LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
		}.NewSentryHandler(context.Background())
		h = tee(h, sh)
	}

	return slog.New(withContext(h, b.extractors...))
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewNope returns a logger that discards everything.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
