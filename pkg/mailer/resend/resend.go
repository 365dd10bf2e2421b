// Package resend delivers mailer.Email through the Resend API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/resend/resend-go/v3"

	"github.com/pinspot/api/pkg/mailer"
)

var ErrNoAPIKey = errors.New("resend: api key is empty")

type Config struct {
	APIKey      string `env:"RESEND_API_KEY"`
	SenderEmail string `env:"RESEND_FROM_EMAIL" envDefault:"hello@pinspot.local"`
	SenderName  string `env:"RESEND_FROM_NAME" envDefault:"pinspot"`
}

type Sender struct {
	client *resend.Client
	from   string
}

type Option func(*resend.Client)

// WithBaseURL points the client at another API host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *resend.Client) {
		if parsed, err := parseURL(u); err == nil {
			c.BaseURL = parsed
		}
	}
}

func New(cfg Config, opts ...Option) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	c := resend.NewClient(cfg.APIKey)
	for _, opt := range opts {
		opt(c)
	}
	return &Sender{client: c, from: mailer.Address(cfg.SenderName, cfg.SenderEmail)}, nil
}

func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	from := email.From
	if from == "" {
		from = s.from
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
	}
	names := make([]string, 0, len(email.Tags))
	for k := range email.Tags {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		req.Tags = append(req.Tags, resend.Tag{Name: k, Value: email.Tags[k]})
	}

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
