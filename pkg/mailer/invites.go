package mailer

import (
	"context"
	"net/url"
	"strings"
)

// Invite is the data of an invitation mail.
type Invite struct {
	Email   string
	Name    string
	Inviter string
	Message string
	Code    string
}

// Welcome is the data of a post-signup mail.
type Welcome struct {
	Email string
	Name  string
}

// SendInvite mails an invitation carrying an accept link built from AppURL.
func (m *Mailer) SendInvite(ctx context.Context, inv Invite) error {
	link := strings.TrimRight(m.cfg.AppURL, "/") + "/signup?invite=" + url.QueryEscape(inv.Code)
	return m.Send(ctx, Message{
		To:       Address(inv.Name, inv.Email),
		Template: "invite.md",
		Data: map[string]any{
			"App":     m.cfg.AppName,
			"Name":    inv.Name,
			"Inviter": inv.Inviter,
			"Message": inv.Message,
			"Link":    link,
		},
		Tags: map[string]string{"category": "invite"},
	})
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(ctx context.Context, w Welcome) error {
	return m.Send(ctx, Message{
		To:       Address(w.Name, w.Email),
		Template: "welcome.md",
		Data: map[string]any{
			"App":  m.cfg.AppName,
			"Name": w.Name,
			"Link": m.cfg.AppURL,
		},
		Tags: map[string]string{"category": "welcome"},
	})
}
