package middlewares_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/pinspot/api/internal/app"
)

func newContext(method, target string) (app.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return app.NewContext(rec, httptest.NewRequest(method, target, nil), nil), rec
}

func ok(c app.Context) error { return c.NoContent(http.StatusOK) }
