package mailer

import (
	"context"
	"fmt"
)

// Email is a rendered message ready for a Sender.
type Email struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	From    string
	ReplyTo string
	Tags    map[string]string
}

// Sender delivers rendered email. pkg/mailer/resend is the production one.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

// Address formats "Name <email>", or just the email when name is empty.
func Address(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
