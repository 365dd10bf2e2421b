package auth

import (
	"errors"
	"net/http"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
)

// Registrar is a strategy that can create accounts.
type Registrar interface {
	Signup(c app.Context) (*schema.User, error)
}

// Routes mounts the auth endpoints on r. Call it after Initialize is in the
// stack so the session user is visible.
func (m *Manager) Routes(r app.Router) error {
	routes := []struct {
		method string
		path   string
		h      app.HandlerFunc
	}{
		{http.MethodPost, "/auth/signup", m.signup},
		{http.MethodPost, "/auth/local", m.login(LocalName)},
		{http.MethodGet, "/auth/session", m.session},
		{http.MethodPost, "/auth/logout", m.logout},
		{http.MethodGet, "/auth/{provider}", m.begin},
		{http.MethodGet, "/auth/{provider}/callback", m.callback},
	}
	for _, rt := range routes {
		if err := r.Handle(rt.method, rt.path, rt.h); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) lookup(name string) (Strategy, error) {
	s, err := m.Strategy(name)
	if errors.Is(err, ErrUnknownStrategy) {
		return nil, app.ErrNotFound("unknown auth provider", app.WithCause(err))
	}
	return s, err
}

func (m *Manager) respond(c app.Context, code int, u *schema.User) error {
	token, err := m.Login(c, u)
	if err != nil {
		return err
	}
	return c.JSON(code, Result{Token: token, User: u})
}

func (m *Manager) signup(c app.Context) error {
	s, err := m.lookup(LocalName)
	if err != nil {
		return err
	}
	reg, ok := s.(Registrar)
	if !ok {
		return app.ErrNotFound("signup is not available")
	}
	u, err := reg.Signup(c)
	if err != nil {
		return err
	}
	return m.respond(c, http.StatusCreated, u)
}

func (m *Manager) authenticate(c app.Context, name string) error {
	s, err := m.lookup(name)
	if err != nil {
		return err
	}
	u, err := s.Authenticate(c)
	if err != nil {
		return err
	}
	return m.respond(c, http.StatusOK, u)
}

func (m *Manager) login(name string) app.HandlerFunc {
	return func(c app.Context) error { return m.authenticate(c, name) }
}

func (m *Manager) begin(c app.Context) error {
	s, err := m.lookup(c.Param("provider"))
	if err != nil {
		return err
	}
	rd, ok := s.(Redirector)
	if !ok {
		return app.ErrNotFound("unknown auth provider")
	}
	return rd.Begin(c)
}

func (m *Manager) callback(c app.Context) error {
	name := c.Param("provider")
	s, err := m.lookup(name)
	if err != nil {
		return err
	}
	if _, ok := s.(Redirector); !ok {
		return app.ErrNotFound("unknown auth provider")
	}
	return m.authenticate(c, name)
}

func (m *Manager) session(c app.Context) error {
	u, ok := CurrentUser(c)
	if !ok {
		return app.ErrUnauthorized("no active session")
	}
	return c.JSON(http.StatusOK, u)
}

func (m *Manager) logout(c app.Context) error {
	if err := m.Logout(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
