package auth_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/app/apptest"
	"github.com/pinspot/api/internal/auth"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/cache"
	"github.com/pinspot/api/pkg/id"
	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/oauth"
	"github.com/pinspot/api/pkg/password"
	"github.com/pinspot/api/pkg/session"
)

var cheapHasher = &password.Hasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// memUsers is an in-memory users repository.
type memUsers struct {
	mu      sync.Mutex
	byID    map[string]schema.User
	lookups int
}

func newMemUsers() *memUsers { return &memUsers{byID: make(map[string]schema.User)} }

func (r *memUsers) Create(_ context.Context, u *schema.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = schema.NormalizeEmail(u.Email)
	u.Username = schema.NormalizeUsername(u.Username)
	for _, other := range r.byID {
		if (u.Email != "" && other.Email == u.Email) || (u.Username != "" && other.Username == u.Username) {
			return store.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = id.NewULID()
	}
	if u.Role == "" {
		u.Role = schema.RoleUser
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *memUsers) ByID(_ context.Context, userID string) (*schema.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	u, ok := r.byID[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *memUsers) find(match func(schema.User) bool) (*schema.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *memUsers) ByEmail(_ context.Context, email string) (*schema.User, error) {
	email = schema.NormalizeEmail(email)
	return r.find(func(u schema.User) bool { return u.Email == email })
}

func (r *memUsers) ByProvider(_ context.Context, provider, providerID string) (*schema.User, error) {
	return r.find(func(u schema.User) bool { return u.Providers[provider] == providerID })
}

func (r *memUsers) LinkProvider(_ context.Context, userID, provider, providerID string) (*schema.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if u.Providers == nil {
		u.Providers = make(map[string]string)
	}
	u.Providers[provider] = providerID
	r.byID[userID] = u
	return &u, nil
}

func (r *memUsers) remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, userID)
}

type mockProvider struct {
	mock.Mock
	name string
}

func (p *mockProvider) Name() string { return p.name }

func (p *mockProvider) AuthCodeURL(state string, _ ...oauth2.AuthCodeOption) string {
	return "https://provider.test/authorize?state=" + state
}

func (p *mockProvider) Exchange(_ context.Context, code string, _ ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	args := p.Called(code)
	tok, _ := args.Get(0).(*oauth2.Token)
	return tok, args.Error(1)
}

func (p *mockProvider) FetchProfile(_ context.Context, tok *oauth2.Token) (*oauth.Profile, error) {
	args := p.Called(tok.AccessToken)
	prof, _ := args.Get(0).(*oauth.Profile)
	return prof, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendInvite(ctx context.Context, inv mailer.Invite) error {
	return m.Called(inv).Error(0)
}

func (m *mockMailer) SendWelcome(ctx context.Context, w mailer.Welcome) error {
	return m.Called(w).Error(0)
}

func errorJSON(c app.Context, err error) error {
	var verrs app.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	if he, ok := app.AsHTTPError(err); ok {
		return c.JSON(he.Code, map[string]string{"error": he.Message})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

type harness struct {
	app     *app.App
	manager *auth.Manager
	users   *memUsers
	handler http.Handler
}

// newHarness builds an App with sessions, the identity layer and the auth
// routes, mirroring the production order.
func newHarness(t *testing.T, setup func(h *harness), opts ...auth.Option) *harness {
	t.Helper()
	a := apptest.Bootstrap(t)
	st := session.NewCacheStore(cache.NewMemory[session.Session](), cache.NewMemory[string]())
	require.NoError(t, a.UseSession(st, app.SessionConfig{Secret: "session-secret", Resave: true}))

	tokens, err := a.Tokens()
	require.NoError(t, err)
	m, err := auth.NewManager(tokens, opts...)
	require.NoError(t, err)

	h := &harness{app: a, manager: m, users: newMemUsers()}
	if setup != nil {
		setup(h)
	}
	require.NoError(t, a.Server().Use(m.Initialize()))
	require.NoError(t, m.Routes(a.Server()))
	h.handler = apptest.Seal(t, a, errorJSON)
	return h
}

func (h *harness) do(req apptest.Request) *http.Response {
	return apptest.Do(h.handler, req).Result()
}

func sid(res *http.Response) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == "pinspot.sid" {
			return c
		}
	}
	return nil
}
