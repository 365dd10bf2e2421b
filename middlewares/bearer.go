package middlewares

import (
	"errors"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/pkg/jwt"
)

type claimsKey struct{}

type bearerConfig struct {
	extractor Extractor
	required  bool
}

// BearerOption configures Bearer.
type BearerOption func(*bearerConfig)

// WithTokenExtractor replaces the default Authorization header source.
func WithTokenExtractor(sources ...TokenSource) BearerOption {
	return func(cfg *bearerConfig) {
		if len(sources) > 0 {
			cfg.extractor = sources
		}
	}
}

// RequireToken rejects requests without a token with 401.
func RequireToken() BearerOption {
	return func(cfg *bearerConfig) {
		cfg.required = true
	}
}

// Bearer parses the bearer token and sets the principal from its subject
// and role. A missing token passes through unless RequireToken is set; a
// present but invalid token is always 401.
func Bearer(svc *jwt.Service, opts ...BearerOption) app.Middleware {
	cfg := &bearerConfig{extractor: Extractor{FromBearerToken()}}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next app.HandlerFunc) app.HandlerFunc {
		return func(c app.Context) error {
			token, ok := cfg.extractor.Extract(c)
			if !ok {
				if cfg.required {
					return app.ErrUnauthorized("missing authentication token")
				}
				return next(c)
			}

			claims, err := svc.Parse(token)
			if err != nil {
				if errors.Is(err, jwt.ErrExpiredToken) {
					return app.ErrUnauthorized("token expired", app.WithCause(err))
				}
				return app.ErrUnauthorized("invalid token", app.WithCause(err))
			}

			c.Set(claimsKey{}, claims)
			c.SetPrincipal(app.Principal{Subject: claims.Subject, Role: claims.Role})
			return next(c)
		}
	}
}

// Claims returns the parsed token claims, or nil when no token was given.
func Claims(c app.Context) *jwt.Claims {
	return app.ContextValue[*jwt.Claims](c, claimsKey{})
}
