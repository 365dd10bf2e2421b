package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/middlewares"
	"github.com/pinspot/api/pkg/monitor"
)

const pingTimeout = 2 * time.Second

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Errors is the terminal error handler. Server errors are logged, reported
// to Sentry and rendered without their message. A storage failure also
// probes db so the report says whether the database was reachable.
func Errors(a *app.App, db Pinger) app.ErrorHandler {
	return func(c app.Context, err error) error {
		code, detail := classify(err)

		if code >= http.StatusInternalServerError {
			detail.Message = http.StatusText(code)
			detail.Details = nil

			attrs := []any{
				slog.Int("status", code),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
				slog.Any("error", err),
			}
			tags := map[string]string{"status": strconv.Itoa(code)}

			if db != nil && store.IsMongoError(err) {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(c), pingTimeout)
				reachable := db.Ping(ctx) == nil
				cancel()
				attrs = append(attrs, slog.Bool("db_reachable", reachable))
				tags["db_reachable"] = strconv.FormatBool(reachable)
			}
			if pe, ok := middlewares.AsPanicError(err); ok && len(pe.Stack) > 0 {
				attrs = append(attrs, slog.String("stack", string(pe.Stack)))
			}

			a.Logger().ErrorContext(c, "request failed", attrs...)
			monitor.Capture(c.Request(), err, tags)
		}

		detail.Code = code
		detail.RequestID = middlewares.GetRequestID(c)
		return c.JSON(code, ErrorBody{Error: detail})
	}
}

func classify(err error) (int, ErrorDetail) {
	var verrs app.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, ErrorDetail{Message: "validation failed", Details: verrs}
	}
	if he, ok := app.AsHTTPError(err); ok {
		return he.Code, ErrorDetail{Message: he.Error(), Details: he.Details}
	}
	if _, ok := middlewares.AsTimeoutError(err); ok {
		return http.StatusGatewayTimeout, ErrorDetail{}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorDetail{Message: "resource not found"}
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, ErrorDetail{Message: "resource already exists"}
	}
	return http.StatusInternalServerError, ErrorDetail{}
}
