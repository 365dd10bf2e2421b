// Package routes holds the ad-hoc endpoints mounted directly on the server
// after the identity layer, and the terminal error handler.
package routes

import (
	"context"
	"net/http"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/buildinfo"
	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
)

// UserRepository is what the ad-hoc routes read from users.
type UserRepository interface {
	ByID(ctx context.Context, id string) (*schema.User, error)
	ByEmail(ctx context.Context, email string) (*schema.User, error)
	Search(ctx context.Context, q string, limit int64) ([]schema.User, error)
}

// InviteRepository stores invites.
type InviteRepository interface {
	Create(ctx context.Context, inv *schema.Invite) error
	ByEmail(ctx context.Context, email string) (*schema.Invite, error)
	Delete(ctx context.Context, id string) error
}

// PinSearcher runs full-text pin queries.
type PinSearcher interface {
	Search(ctx context.Context, q string, limit int64) ([]schema.Pin, error)
}

// Deps are the collaborators of the ad-hoc routes.
type Deps struct {
	APIName    string
	Users      UserRepository
	Invites    InviteRepository
	Pins       PinSearcher
	Extensions *extension.Registry
	Scopes     scope.Set
}

// Mount registers GET /, POST /invite, POST /event and GET /search.
func Mount(r app.Router, d Deps) error {
	if err := r.Get("/", Index(d.APIName)); err != nil {
		return err
	}
	if err := r.Post("/invite", Invite(d.Users, d.Invites, d.Extensions, d.Scopes)); err != nil {
		return err
	}
	if err := r.Post("/event", Event(d.Extensions)); err != nil {
		return err
	}
	return r.Get("/search", Search(d.Pins, d.Users))
}

// About is the GET / body.
type About struct {
	API       string `json:"api"`
	Framework string `json:"framework"`
	Version   string `json:"version"`
}

// Index reports the API name, framework version and build version.
func Index(apiName string) app.HandlerFunc {
	body := About{API: apiName, Framework: app.Version, Version: buildinfo.Version}
	return func(c app.Context) error {
		return c.JSON(http.StatusOK, body)
	}
}
