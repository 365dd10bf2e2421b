package cookie_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/pkg/cookie"
)

// roundTrip copies cookies set on rec onto a fresh request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSignedCookies(t *testing.T) {
	t.Parallel()

	t.Run("no secret", func(t *testing.T) {
		t.Parallel()
		m := cookie.New()
		require.False(t, m.CanSign())
		require.ErrorIs(t, m.SetSigned(httptest.NewRecorder(), "sid", "v", 0), cookie.ErrNoSecret)
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		require.ErrorIs(t, err, cookie.ErrNoSecret)
	})

	t.Run("any non-empty secret signs", func(t *testing.T) {
		t.Parallel()
		m := cookie.New(cookie.WithSecret("short"))
		require.True(t, m.CanSign())
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		m := cookie.New(cookie.WithSecret("keyboard cat"))
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetSigned(rec, "sid", "token-123", 3600))

		v, err := m.GetSigned(roundTrip(rec), "sid")
		require.NoError(t, err)
		require.Equal(t, "token-123", v)
	})

	t.Run("tampered value", func(t *testing.T) {
		t.Parallel()
		m := cookie.New(cookie.WithSecret("keyboard cat"))
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetSigned(rec, "sid", "token-123", 0))

		c := rec.Result().Cookies()[0]
		_, sig, _ := strings.Cut(c.Value, ".")
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "sid", Value: "dG9rZW4tOTk5." + sig})

		_, err := m.GetSigned(r, "sid")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		require.NoError(t, cookie.New(cookie.WithSecret("a")).SetSigned(rec, "sid", "v", 0))

		_, err := cookie.New(cookie.WithSecret("b")).GetSigned(roundTrip(rec), "sid")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		m := cookie.New(cookie.WithSecret("k"))
		_, err := m.GetSigned(httptest.NewRequest(http.MethodGet, "/", nil), "sid")
		require.ErrorIs(t, err, cookie.ErrNotFound)
	})

	t.Run("unsigned value", func(t *testing.T) {
		t.Parallel()
		m := cookie.New(cookie.WithSecret("k"))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.AddCookie(&http.Cookie{Name: "sid", Value: "plain"})
		_, err := m.GetSigned(r, "sid")
		require.ErrorIs(t, err, cookie.ErrBadSig)
	})
}

func TestCookieAttributes(t *testing.T) {
	t.Parallel()

	m := cookie.New(
		cookie.WithSecret("k"),
		cookie.WithDomain("example.com"),
		cookie.WithPath("/api"),
		cookie.WithSecure(true),
		cookie.WithSameSite(http.SameSiteStrictMode),
	)
	rec := httptest.NewRecorder()
	require.NoError(t, m.SetSigned(rec, "sid", "v", 60))

	c := rec.Result().Cookies()[0]
	require.Equal(t, "example.com", c.Domain)
	require.Equal(t, "/api", c.Path)
	require.True(t, c.Secure)
	require.True(t, c.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	require.Equal(t, 60, c.MaxAge)

	rec = httptest.NewRecorder()
	m.Delete(rec, "sid")
	require.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}
