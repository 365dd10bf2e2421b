package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/sanitizer"
)

// UserRepository is what the users controller needs from storage.
type UserRepository interface {
	ByID(ctx context.Context, id string) (*schema.User, error)
	List(ctx context.Context, page store.Page) ([]schema.User, int64, error)
	Update(ctx context.Context, id string, patch store.UserPatch) (*schema.User, error)
	Delete(ctx context.Context, id string) error
}

// PinRemover deletes every pin of a user.
type PinRemover interface {
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type usersController struct {
	users    UserRepository
	pins     PinRemover
	scopes   scope.Set
	onChange ChangeHook
}

// UserUpdate is the PATCH /users/{id} body. Role needs users:write.
type UserUpdate struct {
	Name     *string `json:"name"     validate:"omitempty,max=100"`
	Username *string `json:"username" validate:"omitempty,min=2,max=40"`
	Avatar   *string `json:"avatar"   validate:"omitempty,url"`
	Role     *string `json:"role"     validate:"omitempty,oneof=user admin"`
}

// UserList is the GET /users response.
type UserList struct {
	Users  []schema.User `json:"users"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Users returns the users controller. onChange may be nil.
func Users(users UserRepository, pins PinRemover, scopes scope.Set, onChange ChangeHook) app.Controller {
	if onChange == nil {
		onChange = func(context.Context, string) {}
	}
	uc := &usersController{users: users, pins: pins, scopes: scopes, onChange: onChange}
	return app.Controller{
		Name: "users",
		Base: "/users",
		Routes: []app.Route{
			{Method: http.MethodGet, Path: "/me", Scope: scope.UsersReadSelf, Handler: uc.me},
			{Method: http.MethodGet, Path: "/", Scope: scope.UsersList, Handler: uc.list},
			{Method: http.MethodGet, Path: "/{id}", Handler: uc.get},
			{Method: http.MethodPatch, Path: "/{id}", Scope: scope.UsersWriteSelf, Handler: uc.update},
			{Method: http.MethodDelete, Path: "/{id}", Scope: scope.UsersDelete, Handler: uc.delete},
		},
	}
}

func (uc *usersController) me(c app.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	u, err := uc.users.ByID(c, p.Subject)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (uc *usersController) list(c app.Context) error {
	limit, offset := page(c)
	users, total, err := uc.users.List(c, store.Page{Limit: int64(limit), Offset: int64(offset)})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserList{Users: users, Total: total, Limit: limit, Offset: offset})
}

func (uc *usersController) get(c app.Context) error {
	u, err := uc.users.ByID(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u.Public())
}

func (uc *usersController) update(c app.Context) error {
	id := c.Param("id")
	p, err := ownerOr(c, uc.scopes, id, scope.UsersWrite)
	if err != nil {
		return err
	}

	var in UserUpdate
	if err := app.Bind(c, &in); err != nil {
		return err
	}
	if in.Role != nil && !uc.scopes.Has(p.Role, scope.UsersWrite) {
		return app.ErrForbidden("changing roles requires " + scope.UsersWrite)
	}
	if in.Name != nil {
		name := sanitizer.Text(*in.Name)
		in.Name = &name
	}

	u, err := uc.users.Update(c, id, store.UserPatch{
		Name:     in.Name,
		Username: in.Username,
		Avatar:   in.Avatar,
		Role:     in.Role,
	})
	if err != nil {
		return err
	}
	uc.onChange(c, id)
	return c.JSON(http.StatusOK, u)
}

func (uc *usersController) delete(c app.Context) error {
	id := c.Param("id")
	if err := uc.users.Delete(c, id); err != nil {
		return err
	}
	n, err := uc.pins.DeleteByUser(c, id)
	if err != nil {
		return err
	}
	uc.onChange(c, id)
	c.Logger().InfoContext(c, "user deleted", slog.String("user_id", id), slog.Int64("pins", n))
	return c.NoContent(http.StatusNoContent)
}
