// Package slack posts notifications to an incoming webhook.
package slack

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/slack-go/slack"
)

var (
	ErrNoWebhook = errors.New("slack: webhook URL is not configured")
	ErrPost      = errors.New("slack: failed to post message")
)

type Config struct {
	WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	Channel    string `env:"SLACK_CHANNEL"`
	Username   string `env:"SLACK_USERNAME" envDefault:"pinspot"`
}

type Notifier struct {
	cfg    Config
	client *http.Client
}

type Option func(*Notifier)

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

func New(cfg Config, opts ...Option) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, ErrNoWebhook
	}
	n := &Notifier{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify posts title as the message text and fields as a single attachment,
// sorted by key so repeated events render identically.
func (n *Notifier) Notify(ctx context.Context, title, text string, fields map[string]string) error {
	msg := &slack.WebhookMessage{
		Channel:  n.cfg.Channel,
		Username: n.cfg.Username,
		Text:     title,
	}
	if text != "" || len(fields) > 0 {
		att := slack.Attachment{Text: text}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			att.Fields = append(att.Fields, slack.AttachmentField{Title: k, Value: fields[k], Short: true})
		}
		msg.Attachments = []slack.Attachment{att}
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.cfg.WebhookURL, n.client, msg); err != nil {
		return errors.Join(ErrPost, err)
	}
	return nil
}
