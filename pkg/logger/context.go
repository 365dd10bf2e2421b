package logger

import (
	"context"
	"log/slog"
)

// Extractor pulls one attribute out of a context.
type Extractor func(ctx context.Context) (slog.Attr, bool)

// contextHandler runs extractors on every record so request-scoped values
// stay current.
type contextHandler struct {
	next       slog.Handler
	extractors []Extractor
}

func withContext(next slog.Handler, extractors ...Extractor) slog.Handler {
	var ex []Extractor
	for _, e := range extractors {
		if e != nil {
			ex = append(ex, e)
		}
	}
	if len(ex) == 0 {
		return next
	}
	return &contextHandler{next: next, extractors: ex}
}

func (h *contextHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if a, ok := ex(ctx); ok {
			rec.AddAttrs(a)
		}
	}
	return h.next.Handle(ctx, rec)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), extractors: h.extractors}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), extractors: h.extractors}
}
