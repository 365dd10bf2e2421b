// Package extension is the closed registry of pluggable capabilities
// (mail, chat, marketing) attached to the App at startup.
package extension

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pinspot/api/pkg/mailer"
)

// Name is a capability name.
type Name string

const (
	MailerName    Name = "mailer"
	SlackName     Name = "slack"
	MailchimpName Name = "mailchimp"
)

var (
	ErrUnknownExtension = errors.New("extension: unknown name")
	ErrWrongCapability  = errors.New("extension: instance does not implement capability")
	ErrNotRegistered    = errors.New("extension: not registered")
)

// Mailer sends transactional mail.
type Mailer interface {
	SendInvite(ctx context.Context, inv mailer.Invite) error
	SendWelcome(ctx context.Context, w mailer.Welcome) error
}

// Notifier posts a message to a chat channel.
type Notifier interface {
	Notify(ctx context.Context, title, text string, fields map[string]string) error
}

// Marketing subscribes addresses to a mailing list.
type Marketing interface {
	Subscribe(ctx context.Context, email, name string) error
}

// capabilities checks that v implements the interface for each name.
var capabilities = map[Name]func(v any) bool{
	MailerName:    implements[Mailer],
	SlackName:     implements[Notifier],
	MailchimpName: implements[Marketing],
}

func implements[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

// Names returns the closed set of capability names.
func Names() []Name {
	return []Name{MailerName, SlackName, MailchimpName}
}

// Registry holds one instance per capability. It is written during startup
// and read concurrently afterwards.
type Registry struct {
	mu    sync.RWMutex
	items map[Name]any
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[Name]any)}
}

// Extend stores v under name, replacing any earlier instance.
func (r *Registry) Extend(name Name, v any) error {
	check, ok := capabilities[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	if v == nil || !check(v) {
		return fmt.Errorf("%w: %s got %T", ErrWrongCapability, name, v)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[name] = v
	return nil
}

// Lookup returns the instance registered under name.
func (r *Registry) Lookup(name Name) (any, error) {
	if _, ok := capabilities[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return v, nil
}

func (r *Registry) Mailer() (Mailer, error)       { return get[Mailer](r, MailerName) }
func (r *Registry) Notifier() (Notifier, error)   { return get[Notifier](r, SlackName) }
func (r *Registry) Marketing() (Marketing, error) { return get[Marketing](r, MailchimpName) }

func get[T any](r *Registry, name Name) (T, error) {
	var zero T
	v, err := r.Lookup(name)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
