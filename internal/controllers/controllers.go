// Package controllers holds the declarative route bundles mounted with
// App.AddController.
package controllers

import (
	"context"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/scope"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ChangeHook is told when a user record changes so cached copies can be
// dropped.
type ChangeHook func(ctx context.Context, userID string)

// principal returns the caller. Scoped routes never run without one.
func principal(c app.Context) (app.Principal, error) {
	p, ok := c.Principal()
	if !ok {
		return app.Principal{}, app.ErrUnauthorized("authentication required")
	}
	return p, nil
}

// ownerOr allows the owner, or any role holding override.
func ownerOr(c app.Context, scopes scope.Set, owner, override string) (app.Principal, error) {
	p, err := principal(c)
	if err != nil {
		return p, err
	}
	if p.Subject != owner && !scopes.Has(p.Role, override) {
		return p, app.ErrForbidden("not allowed to modify this resource")
	}
	return p, nil
}

func page(c app.Context) (limit, offset int) {
	return app.QueryInt(c, "limit", defaultLimit, 1, maxLimit), app.QueryInt(c, "offset", 0, 0, 0)
}
