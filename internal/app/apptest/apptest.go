// Package apptest provides helpers for exercising an App in tests without
// a running MongoDB.
package apptest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
)

// Secret is the bearer signature used by Bootstrap.
const Secret = "apptest-bearer-secret"

// LazyOpener connects without pinging, so InitDB succeeds with no server.
// Any query against the handle fails fast.
func LazyOpener(ctx context.Context, _, _ string, _ schema.Definition) (*store.DB, error) {
	return store.Connect(ctx, "mongodb://127.0.0.1:1/pinspot_test", "")
}

// Bootstrap runs AddSchema, InitPlugins, InitDB and AddScopes with the
// default schema and scopes. The App is shut down on cleanup.
func Bootstrap(t testing.TB, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithDBOpener(LazyOpener)}, opts...)
	a := app.New(app.Settings{DBURI: "mongodb://unused", BearerSignature: Secret}, opts...)
	require.NoError(t, a.AddSchema(schema.Default()))
	require.NoError(t, a.InitPlugins())
	_, err := a.InitDB(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.AddScopes(scope.Default()))
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// Seal starts the App on a random port, mounts eh and returns the handler.
func Seal(t testing.TB, a *app.App, eh app.ErrorHandler) http.Handler {
	t.Helper()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.MountErrorHandler(eh))
	return a.Handler()
}

// Token issues a bearer token for subject with role.
func Token(t testing.TB, a *app.App, subject, role string) string {
	t.Helper()
	svc, err := a.Tokens()
	require.NoError(t, err)
	tok, err := svc.Issue(subject, role)
	require.NoError(t, err)
	return tok
}

// Request describes one call made by Do.
type Request struct {
	Method  string
	Target  string
	Body    string
	Token   string
	Header  http.Header
	Cookies []*http.Cookie
}

// Do serves req against h and returns the recorded response.
func Do(h http.Handler, req Request) *httptest.ResponseRecorder {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	r := httptest.NewRequest(method, req.Target, strings.NewReader(req.Body))
	if req.Body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	if req.Token != "" {
		r.Header.Set("Authorization", "Bearer "+req.Token)
	}
	for _, c := range req.Cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

// Cookie returns the named cookie set on w, or nil.
func Cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
