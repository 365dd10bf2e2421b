package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/schema"
)

// Event forwards a client event to the slack notifier and answers 202.
// Without a notifier the event is dropped. The top-level source fills the
// "source" field; a different source property is kept as
// "properties.source".
func Event(ext *extension.Registry) app.HandlerFunc {
	return func(c app.Context) error {
		var ev schema.Event
		if err := app.Bind(c, &ev); err != nil {
			return err
		}

		n, err := ext.Notifier()
		if errors.Is(err, extension.ErrNotRegistered) {
			c.Logger().DebugContext(c, "event dropped, no notifier", slog.String("event", ev.Name))
			return c.NoContent(http.StatusAccepted)
		}
		if err != nil {
			return err
		}

		fields := make(map[string]string, len(ev.Properties)+1)
		for k, v := range ev.Properties {
			fields[k] = fmt.Sprint(v)
		}
		if ev.Source != "" {
			if prev, ok := fields["source"]; ok && prev != ev.Source {
				fields["properties.source"] = prev
			}
			fields["source"] = ev.Source
		}
		if err := n.Notify(c, "Event: "+ev.Name, ev.Name, fields); err != nil {
			return app.NewHTTPError(http.StatusBadGateway, "event forwarding failed", app.WithCause(err))
		}
		return c.NoContent(http.StatusAccepted)
	}
}
