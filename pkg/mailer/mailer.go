// Package mailer renders markdown email templates and hands them to a
// Sender. Mailer also carries the invite and welcome mails the app sends.
package mailer

import (
	"context"
	"errors"
	"strings"
)

type Config struct {
	DefaultLayout   string `env:"MAILER_DEFAULT_LAYOUT" envDefault:"base.html"`
	FallbackSubject string `env:"MAILER_FALLBACK_SUBJECT" envDefault:"Notification"`
	AppURL          string `env:"APP_URL" envDefault:"http://localhost:5000"`
	AppName         string `env:"API_NAME" envDefault:"pinspot"`
}

type Mailer struct {
	sender   Sender
	renderer *Renderer
	cfg      Config
}

func New(sender Sender, renderer *Renderer, cfg Config) *Mailer {
	return &Mailer{sender: sender, renderer: renderer, cfg: cfg}
}

// Message describes one templated mail.
type Message struct {
	To       string
	Template string
	Data     any
	Subject  string // overrides the template's subject
	ReplyTo  string
	Tags     map[string]string
}

// Send renders and delivers msg. The subject comes from msg, then the
// template front matter, then the configured fallback.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if m.sender == nil {
		return ErrNotConfigured
	}

	out, err := m.renderer.Render(m.cfg.DefaultLayout, msg.Template, msg.Data)
	if err != nil {
		return err
	}

	subject := firstNonEmpty(msg.Subject, out.Subject, m.cfg.FallbackSubject)
	if subject == "" {
		return ErrNoSubject
	}

	err = m.sender.Send(ctx, &Email{
		To:      []string{msg.To},
		Subject: subject,
		HTML:    out.HTML,
		Text:    out.Text,
		ReplyTo: msg.ReplyTo,
		Tags:    msg.Tags,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	return nil
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
