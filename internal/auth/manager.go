// Package auth is the identity layer: it turns a session into a user,
// logs users in through pluggable strategies and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/jwt"
	"github.com/pinspot/api/pkg/logger"
)

// SessionUserKey is the session value holding the serialized user.
const SessionUserKey = "auth.user"

type userCtxKey struct{}

// Strategy authenticates a request and returns the user it identifies.
type Strategy interface {
	Name() string
	Authenticate(c app.Context) (*schema.User, error)
}

// Redirector is a strategy that starts with a redirect to a provider.
type Redirector interface {
	Strategy
	Begin(c app.Context) error
}

// Result is the body returned after a successful login.
type Result struct {
	Token string       `json:"token"`
	User  *schema.User `json:"user"`
}

// Manager wires the session, the serializer and the strategies together.
type Manager struct {
	tokens     *jwt.Service
	serializer Serializer
	logger     *slog.Logger

	mu         sync.RWMutex
	strategies map[string]Strategy
}

// Option configures the Manager.
type Option func(*Manager)

// WithSerializer replaces the default FullUser serializer.
func WithSerializer(s Serializer) Option {
	return func(m *Manager) {
		if s != nil {
			m.serializer = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates an identity manager issuing tokens with tokens.
func NewManager(tokens *jwt.Service, opts ...Option) (*Manager, error) {
	if tokens == nil {
		return nil, ErrNoTokenService
	}
	m := &Manager{
		tokens:     tokens,
		serializer: FullUser(),
		logger:     logger.NewNope(),
		strategies: make(map[string]Strategy),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Use registers a strategy under its name, replacing any previous one.
func (m *Manager) Use(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[s.Name()] = s
}

// Strategy returns the strategy registered under name.
func (m *Manager) Strategy(name string) (Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.strategies[name]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return s, nil
}

// Strategies lists registered strategy names.
func (m *Manager) Strategies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.strategies))
	for name := range m.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) SerializeUser(ctx context.Context, u *schema.User) (string, error) {
	return m.serializer.Serialize(ctx, u)
}

func (m *Manager) DeserializeUser(ctx context.Context, v string) (*schema.User, error) {
	return m.serializer.Deserialize(ctx, v)
}

// Forget drops any cached copy of the user. Call it after the user changes.
func (m *Manager) Forget(ctx context.Context, userID string) {
	f, ok := m.serializer.(Forgetter)
	if !ok {
		return
	}
	if err := f.Forget(ctx, userID); err != nil {
		m.logger.WarnContext(ctx, "forget cached user", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// Initialize restores the session user on every request. It never creates a
// session. A user that can no longer be decoded or found is dropped from the
// session and the request continues anonymously. A bearer principal set
// earlier in the stack takes precedence over the session user.
func (m *Manager) Initialize() app.Middleware {
	return func(next app.HandlerFunc) app.HandlerFunc {
		return func(c app.Context) error {
			v, ok := c.SessionValue(SessionUserKey)
			if !ok {
				return next(c)
			}

			u, err := m.DeserializeUser(c, v)
			switch {
			case errors.Is(err, ErrInvalidSession), errors.Is(err, store.ErrNotFound):
				m.logger.InfoContext(c, "dropping stale session user", slog.Any("error", err))
				if err := c.DeleteSessionValue(SessionUserKey); err != nil {
					return err
				}
				return next(c)
			case err != nil:
				return err
			}

			m.attach(c, u, false)
			return next(c)
		}
	}
}

func (m *Manager) attach(c app.Context, u *schema.User, override bool) {
	c.WithContext(context.WithValue(c.Request().Context(), userCtxKey{}, u))
	if _, ok := c.Principal(); override || !ok {
		c.SetPrincipal(app.Principal{Subject: u.ID, Role: u.Role})
	}
}

// Login binds u to a fresh session token, stores the serialized user and
// returns a bearer token for clients that do not keep cookies.
func (m *Manager) Login(c app.Context, u *schema.User) (string, error) {
	v, err := m.SerializeUser(c, u)
	if err != nil {
		return "", err
	}
	if err := c.AuthenticateSession(u.ID); err != nil {
		return "", err
	}
	if err := c.SetSessionValue(SessionUserKey, v); err != nil {
		return "", err
	}
	token, err := m.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return "", err
	}
	m.attach(c, u, true)
	m.logger.InfoContext(c, "user logged in", slog.String("user_id", u.ID))
	return token, nil
}

// Logout destroys the session.
func (m *Manager) Logout(c app.Context) error {
	return c.DestroySession()
}

// CurrentUser returns the user restored by Initialize or set by Login.
func CurrentUser(ctx context.Context) (*schema.User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*schema.User)
	return u, ok && u != nil
}
