package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pinspot/api/pkg/session"
)

// Principal is the authenticated caller. Scope checks look Role up in the
// scope set.
type Principal struct {
	Subject string
	Role    string
}

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the request context.
type Context interface {
	context.Context

	Request() *http.Request
	Response() http.ResponseWriter
	ResponseWriter() *ResponseWriter

	// Param returns the URL parameter value by name.
	Param(name string) string
	Query(name string) string
	QueryDefault(name, defaultValue string) string
	Header(name string) string
	SetHeader(name, value string)

	JSON(code int, v any) error
	NoContent(code int) error
	Redirect(code int, url string) error

	// BindJSON decodes the body into v and validates it. Validation
	// failures come back as ValidationErrors with a nil error.
	BindJSON(v any) (ValidationErrors, error)

	// Written reports whether the response header was sent.
	Written() bool
	Logger() *slog.Logger

	// WithContext replaces the request context, e.g. to apply a deadline.
	WithContext(ctx context.Context)

	Set(key, value any)
	Get(key any) any

	// Session returns the current session, or nil when the request has none.
	// Returns session.ErrNotConfigured if the session middleware is not
	// in the chain.
	Session() (*session.Session, error)
	SessionValue(key string) (string, bool)
	// SetSessionValue writes to the session, creating one if needed.
	SetSessionValue(key, value string) error
	DeleteSessionValue(key string) error
	// AuthenticateSession binds userID to the session and rotates its token.
	AuthenticateSession(userID string) error
	// DestroySession deletes the session and clears the cookie.
	DestroySession() error

	Principal() (Principal, bool)
	SetPrincipal(p Principal)
}

type appContext struct {
	request   *http.Request
	rw        *ResponseWriter
	logger    *slog.Logger
	session   *sessionState
	principal *Principal
	values    map[any]any
	mu        sync.RWMutex
}

// NewContext wraps a request for running handlers outside the router, as
// middleware tests do. Session helpers return session.ErrNotConfigured.
func NewContext(w http.ResponseWriter, r *http.Request, l *slog.Logger) Context {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return newContext(w, r, l)
}

func newContext(w http.ResponseWriter, r *http.Request, l *slog.Logger) *appContext {
	return &appContext{
		request: r,
		rw:      NewResponseWriter(w),
		logger:  l,
	}
}

func (c *appContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *appContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *appContext) Err() error                  { return c.request.Context().Err() }
func (c *appContext) Value(key any) any           { return c.request.Context().Value(key) }

func (c *appContext) Request() *http.Request          { return c.request }
func (c *appContext) Response() http.ResponseWriter   { return c.rw }
func (c *appContext) ResponseWriter() *ResponseWriter { return c.rw }

func (c *appContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

func (c *appContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *appContext) QueryDefault(name, defaultValue string) string {
	if v := c.request.URL.Query().Get(name); v != "" {
		return v
	}
	return defaultValue
}

func (c *appContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *appContext) SetHeader(name, value string) {
	c.rw.Header().Set(name, value)
}

func (c *appContext) JSON(code int, v any) error {
	c.rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.rw.WriteHeader(code)
	return json.NewEncoder(c.rw).Encode(v)
}

func (c *appContext) NoContent(code int) error {
	c.rw.WriteHeader(code)
	return nil
}

func (c *appContext) Redirect(code int, url string) error {
	http.Redirect(c.rw, c.request, url, code)
	return nil
}

func (c *appContext) Written() bool        { return c.rw.Written() }
func (c *appContext) Logger() *slog.Logger { return c.logger }

func (c *appContext) WithContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}

func (c *appContext) Set(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *appContext) Get(key any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

func (c *appContext) Principal() (Principal, bool) {
	if c.principal == nil {
		return Principal{}, false
	}
	return *c.principal, true
}

func (c *appContext) SetPrincipal(p Principal) {
	c.principal = &p
}

// loadSession resolves the cookie once per request.
func (c *appContext) loadSession() (*session.Session, error) {
	st := c.session
	if st == nil {
		return nil, session.ErrNotConfigured
	}
	if st.loaded || st.destroyed {
		return st.sess, nil
	}
	sess, err := st.mgr.load(c.request.Context(), c.request)
	if err != nil {
		return nil, err
	}
	st.sess = sess
	st.loaded = true
	return sess, nil
}

func (c *appContext) Session() (*session.Session, error) {
	return c.loadSession()
}

func (c *appContext) ensureSession() (*session.Session, error) {
	sess, err := c.loadSession()
	if err != nil || sess != nil {
		return sess, err
	}
	sess, err = c.session.mgr.create(c.request)
	if err != nil {
		return nil, err
	}
	c.session.sess = sess
	c.session.destroyed = false
	return sess, nil
}

func (c *appContext) SessionValue(key string) (string, bool) {
	sess, err := c.loadSession()
	if err != nil || sess == nil {
		return "", false
	}
	return sess.GetValue(key)
}

func (c *appContext) SetSessionValue(key, value string) error {
	sess, err := c.ensureSession()
	if err != nil {
		return err
	}
	sess.SetValue(key, value)
	return nil
}

func (c *appContext) DeleteSessionValue(key string) error {
	sess, err := c.loadSession()
	if err != nil || sess == nil {
		return err
	}
	sess.DeleteValue(key)
	return nil
}

func (c *appContext) AuthenticateSession(userID string) error {
	sess, err := c.ensureSession()
	if err != nil {
		return err
	}
	sess.UserID = userID
	sess.MarkDirty()
	return c.session.mgr.rotate(c.request.Context(), sess)
}

func (c *appContext) DestroySession() error {
	sess, err := c.loadSession()
	if err != nil {
		return err
	}
	if sess != nil && !sess.IsNew() {
		if err := c.session.mgr.store.Delete(c.request.Context(), sess.ID); err != nil {
			return err
		}
	}
	c.session.sess = nil
	c.session.destroyed = true
	return nil
}
