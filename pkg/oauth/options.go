package oauth

import (
	"net/http"

	"golang.org/x/oauth2"
)

type Option func(*provider)

// WithHTTPClient routes token and profile requests through c.
func WithHTTPClient(c *http.Client) Option {
	return func(p *provider) { p.httpClient = c }
}

// WithEndpoint overrides the provider's authorize and token URLs.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(p *provider) { p.config.Endpoint = e }
}

// WithProfileURL overrides the profile endpoint.
func WithProfileURL(u string) Option {
	return func(p *provider) { p.profileURL = u }
}
