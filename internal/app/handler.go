package app

import "net/http"

// HandlerFunc handles a request. Returned errors go to the error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders an error returned by a handler or middleware.
type ErrorHandler func(c Context, err error) error

// HTTPMiddleware is the net/http middleware form, used for wrapping the
// whole server (monitoring, tracing).
type HTTPMiddleware = func(http.Handler) http.Handler

// Plugin extends the App during InitPlugins.
type Plugin interface {
	Name() string
	Init(a *App) error
}

// Controller is a declarative bundle of routes under Base.
type Controller struct {
	Name   string
	Base   string
	Routes []Route
}

// Route is one controller endpoint. An empty Scope means public.
type Route struct {
	Method  string
	Path    string
	Scope   string
	Handler HandlerFunc
}

func chain(h HandlerFunc, mws []Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
