package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/scope"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/sanitizer"
)

// InviteRequest is the POST /invite body.
type InviteRequest struct {
	Email   string `json:"email"   validate:"required,email"`
	Name    string `json:"name"    validate:"max=100"`
	Message string `json:"message" validate:"max=1000"`
}

// Invite stores an invitation and mails it. The caller needs
// invites:create through a bearer token or the session user. The invite
// is removed again when the mail cannot be sent. Slack and Mailchimp are
// told about it on a best effort basis.
func Invite(users UserRepository, invites InviteRepository, ext *extension.Registry, scopes scope.Set) app.HandlerFunc {
	return func(c app.Context) error {
		p, ok := c.Principal()
		if !ok {
			return app.ErrUnauthorized("authentication required")
		}
		if !scopes.Has(p.Role, scope.InvitesCreate) {
			return app.ErrForbidden("missing scope " + scope.InvitesCreate)
		}

		var in InviteRequest
		if err := app.Bind(c, &in); err != nil {
			return err
		}
		if err := ensureNew(c, users, invites, in.Email); err != nil {
			return err
		}

		m, err := ext.Mailer()
		if err != nil {
			return app.ErrServiceUnavailable("mail delivery is not configured", app.WithCause(err))
		}

		inv := &schema.Invite{
			Email:     in.Email,
			Name:      sanitizer.Text(in.Name),
			InviterID: p.Subject,
			Message:   sanitizer.Text(in.Message),
		}
		if err := invites.Create(c, inv); err != nil {
			return err
		}

		inviter := inviterName(c, users, p.Subject)
		if err := m.SendInvite(c, mailer.Invite{
			Email:   inv.Email,
			Name:    inv.Name,
			Inviter: inviter,
			Message: inv.Message,
			Code:    inv.Code,
		}); err != nil {
			// an invite that was never mailed must not block a retry
			if derr := invites.Delete(context.WithoutCancel(c), inv.ID); derr != nil {
				return errors.Join(err, derr)
			}
			return err
		}

		announce(c, ext, inv, inviter)
		return c.JSON(http.StatusCreated, inv)
	}
}

func ensureNew(ctx context.Context, users UserRepository, invites InviteRepository, email string) error {
	_, err := users.ByEmail(ctx, email)
	switch {
	case err == nil:
		return app.ErrConflict("email is already registered")
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	_, err = invites.ByEmail(ctx, email)
	switch {
	case err == nil:
		return app.ErrConflict("email was already invited")
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

func inviterName(ctx context.Context, users UserRepository, userID string) string {
	u, err := users.ByID(ctx, userID)
	if err != nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// announce notifies slack and subscribes the invitee. Failures are logged.
func announce(c app.Context, ext *extension.Registry, inv *schema.Invite, inviter string) {
	log := c.Logger()

	if n, err := ext.Notifier(); err == nil {
		fields := map[string]string{"email": inv.Email, "inviter": inviter}
		if err := n.Notify(c, "New invite", inv.Email+" was invited", fields); err != nil {
			log.WarnContext(c, "invite notification failed", slog.Any("error", err))
		}
	}
	if mk, err := ext.Marketing(); err == nil {
		if err := mk.Subscribe(c, inv.Email, inv.Name); err != nil {
			log.WarnContext(c, "invite subscription failed", slog.Any("error", err))
		}
	}
}
