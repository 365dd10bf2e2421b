package routes_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/app/apptest"
	"github.com/pinspot/api/internal/plugins"
	"github.com/pinspot/api/internal/routes"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/id"
	"github.com/pinspot/api/pkg/mailer"
)

type memStore struct {
	mu      sync.Mutex
	users   []schema.User
	invites []schema.Invite
	pins    []schema.Pin
}

func (s *memStore) ByID(_ context.Context, userID string) (*schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) ByEmail(_ context.Context, email string) (*schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = schema.NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) Search(_ context.Context, q string, limit int64) ([]schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.User
	for _, u := range s.users {
		if strings.HasPrefix(u.Username, q) && int64(len(out)) < limit {
			out = append(out, u)
		}
	}
	return out, nil
}

type memInvites struct{ *memStore }

func (s memInvites) Create(_ context.Context, inv *schema.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = id.NewULID()
	inv.Code = "code-" + inv.ID
	inv.Email = schema.NormalizeEmail(inv.Email)
	s.invites = append(s.invites, *inv)
	return nil
}

func (s memInvites) ByEmail(_ context.Context, email string) (*schema.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = schema.NormalizeEmail(email)
	for _, inv := range s.invites {
		if inv.Email == email {
			return &inv, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s memInvites) Delete(_ context.Context, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.invites {
		if inv.ID == inviteID {
			s.invites = append(s.invites[:i], s.invites[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type memPins struct{ *memStore }

func (s memPins) Search(_ context.Context, q string, _ int64) ([]schema.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schema.Pin
	for _, p := range s.pins {
		if strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendInvite(_ context.Context, inv mailer.Invite) error {
	return m.Called(inv).Error(0)
}

func (m *mockMailer) SendWelcome(_ context.Context, w mailer.Welcome) error {
	return m.Called(w).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(_ context.Context, title, text string, fields map[string]string) error {
	return m.Called(title, text, fields).Error(0)
}

type mockMarketing struct{ mock.Mock }

func (m *mockMarketing) Subscribe(_ context.Context, email, name string) error {
	return m.Called(email, name).Error(0)
}

type mockPinger struct{ mock.Mock }

func (m *mockPinger) Ping(context.Context) error { return m.Called().Error(0) }

type fixture struct {
	app     *app.App
	store   *memStore
	handler http.Handler
}

// newFixture mounts the ad-hoc routes behind request IDs and bearer auth.
// register runs before sealing and may add extensions.
func newFixture(t *testing.T, register func(a *app.App)) *fixture {
	t.Helper()
	a := apptest.Bootstrap(t, app.WithPlugins(plugins.RequestID(), plugins.Bearer()))
	ms := &memStore{}
	if register != nil {
		register(a)
	}
	require.NoError(t, routes.Mount(a.Server(), routes.Deps{
		APIName:    "pinspot-test",
		Users:      ms,
		Invites:    memInvites{ms},
		Pins:       memPins{ms},
		Extensions: a.Extensions(),
		Scopes:     a.Scopes(),
	}))
	return &fixture{app: a, store: ms, handler: apptest.Seal(t, a, routes.Errors(a, nil))}
}
