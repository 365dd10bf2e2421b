package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/pinspot/api/internal/app"
	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/internal/store"
	"github.com/pinspot/api/pkg/logger"
	"github.com/pinspot/api/pkg/oauth"
)

// Providers maps provider names to their constructors.
var Providers = map[string]func(oauth.Config, ...oauth.Option) (oauth.Provider, error){
	"facebook":   oauth.NewFacebook,
	"foursquare": oauth.NewFoursquare,
	"twitter":    oauth.NewTwitter,
}

// OAuth runs the authorization code flow with PKCE against one provider.
type OAuth struct {
	provider oauth.Provider
	users    Users
	logger   *slog.Logger
}

func NewOAuth(p oauth.Provider, users Users, l *slog.Logger) *OAuth {
	if l == nil {
		l = logger.NewNope()
	}
	return &OAuth{provider: p, users: users, logger: l}
}

func (o *OAuth) Name() string { return o.provider.Name() }

func (o *OAuth) stateKey() string    { return "oauth." + o.Name() + ".state" }
func (o *OAuth) verifierKey() string { return "oauth." + o.Name() + ".verifier" }

// Begin stores a fresh state and PKCE verifier in the session and redirects
// to the provider.
func (o *OAuth) Begin(c app.Context) error {
	state, err := randomState()
	if err != nil {
		return err
	}
	verifier := oauth2.GenerateVerifier()
	if err := c.SetSessionValue(o.stateKey(), state); err != nil {
		return err
	}
	if err := c.SetSessionValue(o.verifierKey(), verifier); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, o.provider.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

// Authenticate completes the flow. The state and verifier are single use.
// Provider failures are 401.
func (o *OAuth) Authenticate(c app.Context) (*schema.User, error) {
	want, _ := c.SessionValue(o.stateKey())
	verifier, _ := c.SessionValue(o.verifierKey())
	_ = c.DeleteSessionValue(o.stateKey())
	_ = c.DeleteSessionValue(o.verifierKey())

	if reason := c.Query("error"); reason != "" {
		return nil, app.ErrUnauthorized("authorization denied", app.WithCause(ErrProviderDenied),
			app.WithDetails(map[string]string{"provider": o.Name(), "reason": reason}))
	}
	got := c.Query("state")
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return nil, app.ErrUnauthorized("invalid oauth state", app.WithCause(ErrInvalidState))
	}
	code := c.Query("code")
	if code == "" {
		return nil, app.ErrBadRequest("missing authorization code")
	}

	token, err := o.provider.Exchange(c, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, app.ErrUnauthorized("authorization failed", app.WithCause(err))
	}
	profile, err := o.provider.FetchProfile(c, token)
	if err != nil {
		return nil, app.ErrUnauthorized("could not load provider profile", app.WithCause(err))
	}
	return o.resolve(c, profile)
}

// resolve finds the user linked to profile, links an existing account with
// the same email, or creates a new one.
func (o *OAuth) resolve(c app.Context, p *oauth.Profile) (*schema.User, error) {
	name := o.Name()

	u, err := o.users.ByProvider(c, name, p.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if p.Email != "" {
		u, err := o.users.ByEmail(c, p.Email)
		switch {
		case err == nil:
			o.logger.InfoContext(c, "linking provider account", slog.String("provider", name), slog.String("user_id", u.ID))
			return o.users.LinkProvider(c, u.ID, name, p.ID)
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	u = &schema.User{
		Email:     p.Email,
		Name:      p.Name,
		Username:  p.Username,
		Avatar:    p.Avatar,
		Role:      schema.RoleUser,
		Providers: map[string]string{name: p.ID},
	}
	err = o.users.Create(c, u)
	if errors.Is(err, store.ErrDuplicate) && u.Username != "" {
		// the provider handle is taken locally; keep the account without it
		u.Username = ""
		err = o.users.Create(c, u)
	}
	if err != nil {
		return nil, err
	}
	o.logger.InfoContext(c, "user created from provider", slog.String("provider", name), slog.String("user_id", u.ID))
	return u, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
