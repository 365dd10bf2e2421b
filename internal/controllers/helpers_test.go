package controllers_test

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/app/apptest"
	"github.com/pinspot/api/internal/controllers"
	"github.com/pinspot/api/internal/plugins"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/id"
)

type memDB struct {
	mu    sync.Mutex
	users map[string]schema.User
	pins  map[string]schema.Pin
}

func newMemDB() *memDB {
	return &memDB{users: make(map[string]schema.User), pins: make(map[string]schema.Pin)}
}

type memUsers struct{ *memDB }

func (r memUsers) ByID(_ context.Context, userID string) (*schema.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) List(_ context.Context, page store.Page) ([]schema.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b schema.User) int { return strings.Compare(b.ID, a.ID) })
	total := int64(len(out))
	start := min(int(page.Offset), len(out))
	end := min(start+int(page.Limit), len(out))
	return out[start:end], total, nil
}

func (r memUsers) Update(_ context.Context, userID string, patch store.UserPatch) (*schema.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Username != nil {
		u.Username = schema.NormalizeUsername(*patch.Username)
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	r.users[userID] = u
	return &u, nil
}

func (r memUsers) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

type memPins struct{ *memDB }

func (r memPins) Create(_ context.Context, p *schema.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = id.NewULID()
	p.Tags = schema.NormalizeTags(p.Tags)
	r.pins[p.ID] = *p
	return nil
}

func (r memPins) ByID(_ context.Context, pinID string) (*schema.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pins[pinID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r memPins) List(_ context.Context, f store.PinFilter) ([]schema.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schema.Pin, 0)
	for _, p := range r.pins {
		if f.UserID == "" || p.UserID == f.UserID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memPins) Update(_ context.Context, pinID string, patch store.PinPatch) (*schema.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pins[pinID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Tags != nil {
		p.Tags = schema.NormalizeTags(*patch.Tags)
	}
	if patch.Location != nil {
		p.Location = patch.Location
	}
	r.pins[pinID] = p
	return &p, nil
}

func (r memPins) Delete(_ context.Context, pinID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pins[pinID]; !ok {
		return store.ErrNotFound
	}
	delete(r.pins, pinID)
	return nil
}

func (r memPins) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for pid, p := range r.pins {
		if p.UserID == userID {
			delete(r.pins, pid)
			n++
		}
	}
	return n, nil
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

type fixture struct {
	db      *memDB
	app     *app.App
	handler http.Handler
	changed []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: newMemDB()}
	f.app = apptest.Bootstrap(t, app.WithPlugins(plugins.Bearer()))
	scopes := f.app.Scopes()

	var mu sync.Mutex
	hook := func(_ context.Context, userID string) {
		mu.Lock()
		defer mu.Unlock()
		f.changed = append(f.changed, userID)
	}
	require.NoError(t, f.app.AddController(controllers.Users(memUsers{f.db}, memPins{f.db}, scopes, hook)))
	require.NoError(t, f.app.AddController(controllers.Pins(memPins{f.db}, scopes)))
	f.handler = apptest.Seal(t, f.app, errorJSON)
	return f
}

func (f *fixture) addUser(u schema.User) schema.User {
	if u.ID == "" {
		u.ID = id.NewULID()
	}
	if u.Role == "" {
		u.Role = schema.RoleUser
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.users[u.ID] = u
	return u
}

func (f *fixture) addPin(p schema.Pin) schema.Pin {
	p.ID = id.NewULID()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.pins[p.ID] = p
	return p
}

func (f *fixture) token(t *testing.T, u schema.User) string {
	return apptest.Token(t, f.app, u.ID, u.Role)
}
