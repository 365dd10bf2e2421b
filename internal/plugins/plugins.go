// Package plugins adapts the request middlewares to framework plugins so
// they are attached during InitPlugins, ahead of every controller.
package plugins

import (
	"time"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/middlewares"
)

type plugin struct {
	name string
	init func(*app.App) error
}

func (p plugin) Name() string          { return p.name }
func (p plugin) Init(a *app.App) error { return p.init(a) }

func use(name string, mw func(*app.App) (app.Middleware, error)) app.Plugin {
	return plugin{name: name, init: func(a *app.App) error {
		m, err := mw(a)
		if err != nil {
			return err
		}
		return a.Server().Use(m)
	}}
}

// Recover converts handler panics into errors for the error handler.
func Recover(opts ...middlewares.RecoverOption) app.Plugin {
	return use("recover", func(*app.App) (app.Middleware, error) {
		return middlewares.Recover(opts...), nil
	})
}

// RequestID tags each request with an ID.
func RequestID(opts ...middlewares.RequestIDOption) app.Plugin {
	return use("request-id", func(*app.App) (app.Middleware, error) {
		return middlewares.RequestID(opts...), nil
	})
}

// CORS answers preflight requests and sets CORS headers.
func CORS(opts ...middlewares.CORSOption) app.Plugin {
	return use("cors", func(*app.App) (app.Middleware, error) {
		return middlewares.CORS(opts...), nil
	})
}

// Timeout bounds request handling time.
func Timeout(d time.Duration) app.Plugin {
	return use("timeout", func(*app.App) (app.Middleware, error) {
		return middlewares.Timeout(d), nil
	})
}

// Bearer resolves the bearer token principal with the app's token service.
// It fails InitPlugins when the bearer signature is empty.
func Bearer(opts ...middlewares.BearerOption) app.Plugin {
	return use("bearer", func(a *app.App) (app.Middleware, error) {
		svc, err := a.Tokens()
		if err != nil {
			return nil, err
		}
		return middlewares.Bearer(svc, opts...), nil
	})
}

// Defaults returns the standard plugin set in stack order.
func Defaults(timeout time.Duration, corsOrigins []string) []app.Plugin {
	return []app.Plugin{
		RequestID(),
		Recover(),
		CORS(middlewares.WithAllowOrigins(corsOrigins...)),
		Timeout(timeout),
		Bearer(),
	}
}
