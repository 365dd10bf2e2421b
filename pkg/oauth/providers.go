package oauth

import (
	"io"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/foursquare"
)

const (
	Facebook   = "facebook"
	Foursquare = "foursquare"
	Twitter    = "twitter"
)

func NewFacebook(cfg Config, opts ...Option) (Provider, error) {
	return newProvider(Facebook, cfg, provider{
		config: &oauth2.Config{
			Endpoint: facebook.Endpoint,
			Scopes:   []string{"email", "public_profile"},
		},
		profileURL: "https://graph.facebook.com/v19.0/me?fields=id,name,email,picture.type(large)",
		decode: func(r io.Reader) (*Profile, error) {
			return decodeJSON(r, func(v struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture struct {
					Data struct {
						URL string `json:"url"`
					} `json:"data"`
				} `json:"picture"`
			}) *Profile {
				return &Profile{ID: v.ID, Name: v.Name, Email: v.Email, Avatar: v.Picture.Data.URL}
			})
		},
	}, opts...)
}

// NewFoursquare builds the Foursquare provider. Its v2 API takes the token
// as the oauth_token query parameter and requires a version date.
func NewFoursquare(cfg Config, opts ...Option) (Provider, error) {
	return newProvider(Foursquare, cfg, provider{
		config:     &oauth2.Config{Endpoint: foursquare.Endpoint},
		profileURL: "https://api.foursquare.com/v2/users/self?v=20240101",
		queryToken: "oauth_token",
		decode: func(r io.Reader) (*Profile, error) {
			return decodeJSON(r, func(v struct {
				Response struct {
					User struct {
						ID        string `json:"id"`
						FirstName string `json:"firstName"`
						LastName  string `json:"lastName"`
						Contact   struct {
							Email string `json:"email"`
						} `json:"contact"`
						Photo struct {
							Prefix string `json:"prefix"`
							Suffix string `json:"suffix"`
						} `json:"photo"`
					} `json:"user"`
				} `json:"response"`
			}) *Profile {
				u := v.Response.User
				p := &Profile{
					ID:    u.ID,
					Name:  strings.TrimSpace(u.FirstName + " " + u.LastName),
					Email: u.Contact.Email,
				}
				if u.Photo.Prefix != "" {
					p.Avatar = u.Photo.Prefix + "original" + u.Photo.Suffix
				}
				return p
			})
		},
	}, opts...)
}

// NewTwitter builds the Twitter (X) OAuth 2.0 provider. PKCE is mandatory
// there and the API never returns an email.
func NewTwitter(cfg Config, opts ...Option) (Provider, error) {
	return newProvider(Twitter, cfg, provider{
		config: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://twitter.com/i/oauth2/authorize",
				TokenURL:  "https://api.twitter.com/2/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			Scopes: []string{"users.read", "tweet.read"},
		},
		profileURL: "https://api.twitter.com/2/users/me?user.fields=profile_image_url",
		decode: func(r io.Reader) (*Profile, error) {
			return decodeJSON(r, func(v struct {
				Data struct {
					ID       string `json:"id"`
					Name     string `json:"name"`
					Username string `json:"username"`
					Image    string `json:"profile_image_url"`
				} `json:"data"`
			}) *Profile {
				d := v.Data
				return &Profile{ID: d.ID, Name: d.Name, Username: d.Username, Avatar: d.Image}
			})
		},
	}, opts...)
}
