// Package oauth implements the authorization-code flow with PKCE against
// Facebook, Foursquare and Twitter, and normalizes their profiles.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// Profile is the provider-independent user record.
type Profile struct {
	Provider string
	ID       string
	Email    string // empty when the provider does not disclose it
	Name     string
	Username string
	Avatar   string
}

// Provider is one identity provider.
type Provider interface {
	Name() string
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

type provider struct {
	name       string
	config     *oauth2.Config
	profileURL string
	// queryToken, when set, sends the access token as this query parameter
	// instead of an Authorization header.
	queryToken string
	decode     func(io.Reader) (*Profile, error)
	httpClient *http.Client
}

func newProvider(name string, cfg Config, base provider, opts ...Option) (*provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	p := base
	p.name = name
	p.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint:     base.config.Endpoint,
	}
	if len(p.config.Scopes) == 0 {
		p.config.Scopes = base.config.Scopes
	}
	for _, opt := range opts {
		opt(&p)
	}
	return &p, nil
}

func (p *provider) Name() string { return p.name }

func (p *provider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.config.AuthCodeURL(state, opts...)
}

func (p *provider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	tok, err := p.config.Exchange(p.withClient(ctx), code, opts...)
	if err != nil {
		return nil, errors.Join(ErrExchangeFailed, err)
	}
	return tok, nil
}

func (p *provider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	ctx = p.withClient(ctx)

	target := p.profileURL
	client := p.config.Client(ctx, token)
	if p.queryToken != "" {
		u, err := url.Parse(target)
		if err != nil {
			return nil, errors.Join(ErrFetchFailed, err)
		}
		q := u.Query()
		q.Set(p.queryToken, token.AccessToken)
		u.RawQuery = q.Encode()
		target = u.String()
		client = oauth2.NewClient(ctx, nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, errors.Join(ErrRequestFailed, fmt.Errorf("%s: status=%d body=%s", p.name, resp.StatusCode, body))
	}

	prof, err := p.decode(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}
	if prof.ID == "" {
		return nil, ErrNoUserID
	}
	prof.Provider = p.name
	return prof, nil
}

func (p *provider) withClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

func decodeJSON[T any](r io.Reader, conv func(T) *Profile) (*Profile, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return nil, err
	}
	return conv(v), nil
}
