package app_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/pkg/cookie"
	"github.com/pinspot/api/pkg/session"
)

func sessionApp(t *testing.T, st session.Store, cfg app.SessionConfig) http.Handler {
	t.Helper()
	a := bootstrap(t)
	srv := a.Server()

	require.NoError(t, srv.Get("/unmanaged", func(c app.Context) error {
		_, err := c.Session()
		return err
	}))
	require.NoError(t, a.UseSession(st, cfg))
	require.NoError(t, srv.Get("/noop", func(c app.Context) error {
		return c.NoContent(http.StatusNoContent)
	}))
	require.NoError(t, srv.Get("/set", func(c app.Context) error {
		return c.SetSessionValue("k", c.Query("v"))
	}))
	require.NoError(t, srv.Get("/get", func(c app.Context) error {
		v, _ := c.SessionValue("k")
		return c.JSON(http.StatusOK, map[string]string{"k": v})
	}))
	require.NoError(t, srv.Get("/login", func(c app.Context) error {
		return c.AuthenticateSession("u1")
	}))
	require.NoError(t, srv.Get("/whoami", func(c app.Context) error {
		sess, err := c.Session()
		if err != nil || sess == nil {
			return app.ErrUnauthorized("no session")
		}
		return c.JSON(http.StatusOK, map[string]string{"user": sess.UserID})
	}))
	require.NoError(t, srv.Get("/logout", func(c app.Context) error {
		return c.DestroySession()
	}))
	return seal(t, a)
}

func TestSession_SaveUninitializedFalse(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret", Resave: true})

	w := do(h, http.MethodGet, "/noop")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, sessionCookie(t, w))
	assert.Zero(t, st.creates.Load(), "untouched request must not create a session")

	w = do(h, http.MethodGet, "/get")
	assert.JSONEq(t, `{"k":""}`, w.Body.String())
	assert.Zero(t, st.creates.Load(), "reading does not create")

	w = do(h, http.MethodGet, "/set?v=x")
	assert.Equal(t, http.StatusOK, w.Code)
	ck := sessionCookie(t, w)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.EqualValues(t, 1, st.creates.Load())
}

func TestSession_Resave(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		resave      bool
		wantUpdates int32
	}{
		{"resave persists unmodified session", true, 2},
		{"no resave leaves it alone", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := newCountingStore()
			h := sessionApp(t, st, app.SessionConfig{Secret: "secret", Resave: tt.resave})

			ck := sessionCookie(t, do(h, http.MethodGet, "/set?v=x"))
			require.NotNil(t, ck)

			w := do(h, http.MethodGet, "/get", ck)
			assert.JSONEq(t, `{"k":"x"}`, w.Body.String())
			do(h, http.MethodGet, "/noop", ck)

			assert.EqualValues(t, 1, st.creates.Load())
			assert.Equal(t, tt.wantUpdates, st.updates.Load())
		})
	}
}

func TestSession_TouchesIdleSessions(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret"})

	ck := sessionCookie(t, do(h, http.MethodGet, "/set?v=x"))
	require.NotNil(t, ck)

	do(h, http.MethodGet, "/get", ck)
	assert.Zero(t, st.touches.Load(), "recent activity is not rewritten")

	st.idle.Store(int64(5 * time.Minute))
	w := do(h, http.MethodGet, "/get", ck)
	assert.JSONEq(t, `{"k":"x"}`, w.Body.String())
	assert.EqualValues(t, 1, st.touches.Load())
	assert.Zero(t, st.updates.Load())

	do(h, http.MethodGet, "/noop", ck)
	assert.EqualValues(t, 1, st.touches.Load(), "unloaded sessions are not touched")
}

func TestSession_SaveUninitializedTrue(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret", SaveUninitialized: true})

	w := do(h, http.MethodGet, "/noop")
	assert.NotNil(t, sessionCookie(t, w))
	assert.EqualValues(t, 1, st.creates.Load())
}

func TestSession_AuthenticateRotatesToken(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret", Resave: true})

	before := sessionCookie(t, do(h, http.MethodGet, "/set?v=x"))
	require.NotNil(t, before)

	after := sessionCookie(t, do(h, http.MethodGet, "/login", before))
	require.NotNil(t, after)
	assert.NotEqual(t, before.Value, after.Value)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/whoami", before).Code, "old token is dead")

	w := do(h, http.MethodGet, "/whoami", after)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"u1"}`, w.Body.String())
	assert.JSONEq(t, `{"k":"x"}`, do(h, http.MethodGet, "/get", after).Body.String())
}

func TestSession_LoginWithoutSession(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret"})

	ck := sessionCookie(t, do(h, http.MethodGet, "/login"))
	require.NotNil(t, ck)
	assert.EqualValues(t, 1, st.creates.Load())
	assert.JSONEq(t, `{"user":"u1"}`, do(h, http.MethodGet, "/whoami", ck).Body.String())
}

func TestSession_Destroy(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret", Resave: true})

	ck := sessionCookie(t, do(h, http.MethodGet, "/login"))
	require.NotNil(t, ck)

	w := do(h, http.MethodGet, "/logout", ck)
	cleared := sessionCookie(t, w)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)
	assert.EqualValues(t, 1, st.deletes.Load())

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/whoami", ck).Code)
}

func TestSession_TamperedCookie(t *testing.T) {
	t.Parallel()

	st := newCountingStore()
	h := sessionApp(t, st, app.SessionConfig{Secret: "secret"})

	ck := sessionCookie(t, do(h, http.MethodGet, "/set?v=x"))
	require.NotNil(t, ck)
	ck.Value = "x" + ck.Value

	assert.JSONEq(t, `{"k":""}`, do(h, http.MethodGet, "/get", ck).Body.String())
}

func TestSession_NotConfigured(t *testing.T) {
	t.Parallel()

	h := sessionApp(t, newCountingStore(), app.SessionConfig{Secret: "secret"})
	// The route registered before UseSession has no session layer.
	assert.Equal(t, http.StatusInternalServerError, do(h, http.MethodGet, "/unmanaged").Code)
}

func TestUseSession_Validation(t *testing.T) {
	t.Parallel()

	a := bootstrap(t)
	require.ErrorIs(t, a.UseSession(newCountingStore(), app.SessionConfig{}), cookie.ErrNoSecret)
	require.ErrorIs(t, a.UseSession(nil, app.SessionConfig{Secret: "s"}), session.ErrNotConfigured)

	fresh := app.New(app.Settings{})
	t.Cleanup(func() { _ = fresh.Shutdown(context.Background()) })
	require.ErrorIs(t, fresh.UseSession(newCountingStore(), app.SessionConfig{Secret: "s"}), app.ErrOutOfOrder)
}
