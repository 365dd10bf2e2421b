package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/cache"
	"github.com/pinspot/api/pkg/session"
)

// lazyOpener connects without pinging so no server is needed.
func lazyOpener(ctx context.Context, _, _ string, _ schema.Definition) (*store.DB, error) {
	return store.Connect(ctx, "mongodb://127.0.0.1:1/pinspot_test", "")
}

// bootstrap runs every phase up to and including AddScopes.
func bootstrap(t *testing.T, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithDBOpener(lazyOpener)}, opts...)
	a := app.New(app.Settings{DBURI: "mongodb://unused", BearerSignature: "test-secret"}, opts...)
	require.NoError(t, a.AddSchema(schema.Default()))
	require.NoError(t, a.InitPlugins())
	_, err := a.InitDB(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.AddScopes(scope.Default()))
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// seal starts the server and mounts the test error handler.
func seal(t *testing.T, a *app.App) http.Handler {
	t.Helper()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.MountErrorHandler(jsonErrors))
	return a.Handler()
}

func jsonErrors(c app.Context, err error) error {
	var verrs app.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": verrs})
	}
	if he, ok := app.AsHTTPError(err); ok {
		return c.JSON(he.Code, map[string]string{"error": he.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal"})
}

func do(h http.Handler, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "pinspot.sid" {
			return c
		}
	}
	return nil
}

// countingStore records how often each write path is taken.
type countingStore struct {
	session.Store
	creates atomic.Int32
	updates atomic.Int32
	deletes atomic.Int32
	touches atomic.Int32
	idle    atomic.Int64 // nanoseconds subtracted from LastActiveAt on Get
}

func newCountingStore() *countingStore {
	return &countingStore{Store: session.NewCacheStore(
		cache.NewMemory[session.Session](cache.WithCleanupInterval(0)),
		cache.NewMemory[string](cache.WithCleanupInterval(0)),
	)}
}

func (s *countingStore) Create(ctx context.Context, sess *session.Session) error {
	s.creates.Add(1)
	return s.Store.Create(ctx, sess)
}

func (s *countingStore) Update(ctx context.Context, sess *session.Session) error {
	s.updates.Add(1)
	return s.Store.Update(ctx, sess)
}

func (s *countingStore) Get(ctx context.Context, token string) (*session.Session, error) {
	sess, err := s.Store.Get(ctx, token)
	if err == nil {
		sess.LastActiveAt = sess.LastActiveAt.Add(-time.Duration(s.idle.Load()))
	}
	return sess, err
}

func (s *countingStore) Touch(ctx context.Context, id string, at time.Time) error {
	s.touches.Add(1)
	return s.Store.Touch(ctx, id, at)
}

func (s *countingStore) Delete(ctx context.Context, id string) error {
	s.deletes.Add(1)
	return s.Store.Delete(ctx, id)
}
