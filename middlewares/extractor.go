package middlewares

import (
	"strings"

	"github.com/pinspot/api/internal/app"
)

// TokenSource reads a credential from the request.
type TokenSource func(app.Context) (string, bool)

// Extractor tries sources in order and returns the first non-empty value.
type Extractor []TokenSource

func (e Extractor) Extract(c app.Context) (string, bool) {
	for _, src := range e {
		if v, ok := src(c); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// FromBearerToken reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func FromBearerToken() TokenSource {
	return func(c app.Context) (string, bool) {
		scheme, token, ok := strings.Cut(c.Header("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
}

// FromQuery reads a query parameter.
func FromQuery(name string) TokenSource {
	return func(c app.Context) (string, bool) {
		v := c.Query(name)
		return v, v != ""
	}
}

// FromHeader reads a request header.
func FromHeader(name string) TokenSource {
	return func(c app.Context) (string, bool) {
		v := c.Header(name)
		return v, v != ""
	}
}
