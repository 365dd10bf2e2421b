package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/pkg/health"
)

// Router registers middleware and routes on the App. Middleware applies to
// routes registered after it, never to earlier ones.
type Router interface {
	Use(mws ...Middleware) error
	// UseHTTP wraps the whole server, health routes included. It must be
	// called before Start.
	UseHTTP(mws ...HTTPMiddleware) error
	Handle(method, pattern string, h HandlerFunc, mws ...Middleware) error
	Get(pattern string, h HandlerFunc, mws ...Middleware) error
	Post(pattern string, h HandlerFunc, mws ...Middleware) error
	Put(pattern string, h HandlerFunc, mws ...Middleware) error
	Patch(pattern string, h HandlerFunc, mws ...Middleware) error
	Delete(pattern string, h HandlerFunc, mws ...Middleware) error
}

// route is a registered endpoint with the middleware that was active when
// it was added.
type route struct {
	method  string
	pattern string
	handler HandlerFunc
	stack   []Middleware
}

var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

type server struct{ a *App }

func (s *server) Use(mws ...Middleware) error {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == phaseSealed {
		return fmt.Errorf("use: %w", ErrSealed)
	}
	for _, mw := range mws {
		if mw == nil {
			return fmt.Errorf("use: %w", ErrNoHandler)
		}
	}
	a.middlewares = append(a.middlewares, mws...)
	return nil
}

func (s *server) UseHTTP(mws ...HTTPMiddleware) error {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.expect("use http", phaseCreated, phaseScopes); err != nil {
		return err
	}
	a.httpMws = append(a.httpMws, mws...)
	return nil
}

func (s *server) Handle(method, pattern string, h HandlerFunc, mws ...Middleware) error {
	a := s.a
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle(method, pattern, chain(h, mws))
}

func (s *server) Get(pattern string, h HandlerFunc, mws ...Middleware) error {
	return s.Handle(http.MethodGet, pattern, h, mws...)
}

func (s *server) Post(pattern string, h HandlerFunc, mws ...Middleware) error {
	return s.Handle(http.MethodPost, pattern, h, mws...)
}

func (s *server) Put(pattern string, h HandlerFunc, mws ...Middleware) error {
	return s.Handle(http.MethodPut, pattern, h, mws...)
}

func (s *server) Patch(pattern string, h HandlerFunc, mws ...Middleware) error {
	return s.Handle(http.MethodPatch, pattern, h, mws...)
}

func (s *server) Delete(pattern string, h HandlerFunc, mws ...Middleware) error {
	return s.Handle(http.MethodDelete, pattern, h, mws...)
}

// handle records a route with a snapshot of the active middleware. Callers
// hold mu.
func (a *App) handle(method, pattern string, h HandlerFunc) error {
	if a.phase == phaseSealed {
		return fmt.Errorf("%s %s: %w", method, pattern, ErrSealed)
	}
	if h == nil {
		return fmt.Errorf("%s %s: %w", method, pattern, ErrNoHandler)
	}
	method = strings.ToUpper(method)
	if !methods[method] {
		return fmt.Errorf("%s %s: unsupported method", method, pattern)
	}
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("%s %s: pattern must begin with /", method, pattern)
	}
	a.routes = append(a.routes, route{
		method:  method,
		pattern: pattern,
		handler: h,
		stack:   append([]Middleware(nil), a.middlewares...),
	})
	return nil
}

// compile builds the chi router from the recorded stack. Callers hold mu.
func (a *App) compile() http.Handler {
	r := chi.NewRouter()

	checks := make(health.Checks, len(a.checks))
	for name, fn := range a.checks {
		checks[name] = fn
	}
	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(checks, health.WithLogger(a.logger)))

	for _, rt := range a.routes {
		r.Method(rt.method, rt.pattern, a.serve(chain(rt.handler, rt.stack)))
	}

	all := append([]Middleware(nil), a.middlewares...)
	r.NotFound(a.serve(chain(func(Context) error {
		return ErrNotFound("route not found")
	}, all)))
	r.MethodNotAllowed(a.serve(chain(func(Context) error {
		return ErrMethodNotAllowed("method not allowed")
	}, all)))
	return r
}

// serve adapts a HandlerFunc to net/http and routes its error to the error
// handler. A failing error handler falls back to a bare 500.
func (a *App) serve(h HandlerFunc) http.HandlerFunc {
	eh := a.errorHandler
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, a.logger)
		if err := h(c); err != nil {
			a.handleError(c, eh, err)
		}
		if !c.rw.Written() {
			// Runs the before-write hooks so sessions flush.
			c.rw.WriteHeader(http.StatusOK)
		}
	}
}

func (a *App) handleError(c *appContext, eh ErrorHandler, err error) {
	if c.Written() {
		a.logger.ErrorContext(c, "error after response was written",
			slog.String("path", c.request.URL.Path),
			slog.Any("error", err),
		)
		return
	}
	if eh != nil {
		herr := eh(c, err)
		if herr == nil {
			return
		}
		a.logger.ErrorContext(c, "error handler failed",
			slog.Any("error", err),
			slog.Any("handler_error", herr),
		)
	}
	if !c.Written() {
		http.Error(c.rw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// requireScope rejects callers whose role lacks want.
func requireScope(set scope.Set, want string) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			p, ok := c.Principal()
			if !ok {
				return ErrUnauthorized("authentication required")
			}
			if !set.Has(p.Role, want) {
				return ErrForbidden("missing scope " + want)
			}
			return next(c)
		}
	}
}

func joinPath(base, p string) string {
	base = "/" + strings.Trim(base, "/")
	p = strings.Trim(p, "/")
	switch {
	case p == "":
		return base
	case base == "/":
		return "/" + p
	default:
		return base + "/" + p
	}
}
