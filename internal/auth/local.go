package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/extension"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/logger"
	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/password"
	"github.com/pinspot/api/pkg/sanitizer"
)

// LocalName is the name of the email and password strategy.
const LocalName = "local"

// Users is the subset of the users repository the strategies need.
type Users interface {
	UserFinder
	Create(ctx context.Context, u *schema.User) error
	ByEmail(ctx context.Context, email string) (*schema.User, error)
	ByProvider(ctx context.Context, provider, providerID string) (*schema.User, error)
	LinkProvider(ctx context.Context, userID, provider, providerID string) (*schema.User, error)
}

// Credentials is the local login body.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// Signup is the local signup body.
type Signup struct {
	Email    string `json:"email"              validate:"required,email"`
	Password string `json:"password"           validate:"required,min=8,max=128"`
	Name     string `json:"name,omitempty"     validate:"max=100"`
	Username string `json:"username,omitempty" validate:"max=40"`
	Invite   string `json:"invite,omitempty"   validate:"omitempty,uuid"`
}

// InviteAcceptor marks an invite code as used.
type InviteAcceptor interface {
	Accept(ctx context.Context, code string) (*schema.Invite, error)
}

// Local authenticates with email and password.
type Local struct {
	users   Users
	hasher  *password.Hasher
	mailers func() (extension.Mailer, error)
	invites InviteAcceptor
	logger  *slog.Logger
}

// LocalOption configures Local.
type LocalOption func(*Local)

// WithWelcomeMail sends a welcome mail after signup through the registry's
// mailer, when one is registered.
func WithWelcomeMail(reg *extension.Registry) LocalOption {
	return func(l *Local) { l.mailers = reg.Mailer }
}

// WithInvites accepts the invite code posted with a signup.
func WithInvites(inv InviteAcceptor) LocalOption {
	return func(l *Local) { l.invites = inv }
}

func WithHasher(h *password.Hasher) LocalOption {
	return func(l *Local) { l.hasher = h }
}

func WithLocalLogger(lg *slog.Logger) LocalOption {
	return func(l *Local) { l.logger = lg }
}

func NewLocal(users Users, opts ...LocalOption) *Local {
	l := &Local{
		users:  users,
		hasher: password.Default(),
		logger: logger.NewNope(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Local) Name() string { return LocalName }

// Authenticate checks the posted credentials. Unknown emails, accounts
// without a password and wrong passwords are all the same 401.
func (l *Local) Authenticate(c app.Context) (*schema.User, error) {
	var in Credentials
	if err := app.Bind(c, &in); err != nil {
		return nil, err
	}

	u, err := l.users.ByEmail(c, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalidLogin()
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, invalidLogin()
	}
	if err := l.hasher.Verify(in.Password, u.PasswordHash); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, invalidLogin()
		}
		return nil, err
	}
	return u, nil
}

// Signup creates a local account. Accepting the invite and the welcome
// mail are best effort.
func (l *Local) Signup(c app.Context) (*schema.User, error) {
	var in Signup
	if err := app.Bind(c, &in); err != nil {
		return nil, err
	}

	hash, err := l.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &schema.User{
		Email:        in.Email,
		Name:         sanitizer.Text(in.Name),
		Username:     in.Username,
		Role:         schema.RoleUser,
		PasswordHash: hash,
	}
	if err := l.users.Create(c, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, app.ErrConflict("email or username already registered", app.WithCause(errors.Join(ErrDuplicateAccount, err)))
		}
		return nil, err
	}

	l.acceptInvite(c, u, in.Invite)
	l.welcome(c, u)
	return u, nil
}

func (l *Local) acceptInvite(ctx context.Context, u *schema.User, code string) {
	if code == "" || l.invites == nil {
		return
	}
	inv, err := l.invites.Accept(ctx, code)
	if err != nil {
		l.logger.WarnContext(ctx, "invite not accepted",
			slog.String("user_id", u.ID), slog.Any("error", err))
		return
	}
	l.logger.InfoContext(ctx, "invite accepted",
		slog.String("user_id", u.ID), slog.String("inviter_id", inv.InviterID))
}

func (l *Local) welcome(ctx context.Context, u *schema.User) {
	if l.mailers == nil {
		return
	}
	m, err := l.mailers()
	if err != nil {
		l.logger.DebugContext(ctx, "welcome mail skipped", slog.Any("error", err))
		return
	}
	if err := m.SendWelcome(ctx, mailer.Welcome{Email: u.Email, Name: u.Name}); err != nil {
		l.logger.WarnContext(ctx, "welcome mail failed", slog.String("user_id", u.ID), slog.Any("error", err))
	}
}

func invalidLogin() error {
	return app.ErrUnauthorized("invalid email or password", app.WithCause(ErrInvalidLogin))
}
