package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/pinspot/api/pkg/oauth"
)

var creds = oauth.Config{ClientID: "cid", ClientSecret: "secret", RedirectURL: "http://localhost/cb"}

type constructor func(oauth.Config, ...oauth.Option) (oauth.Provider, error)

func TestConstructors_ValidateConfig(t *testing.T) {
	t.Parallel()

	for name, ctor := range map[string]constructor{
		oauth.Facebook:   oauth.NewFacebook,
		oauth.Foursquare: oauth.NewFoursquare,
		oauth.Twitter:    oauth.NewTwitter,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := ctor(oauth.Config{ClientSecret: "s"})
			require.ErrorIs(t, err, oauth.ErrMissingClientID)
			_, err = ctor(oauth.Config{ClientID: "c"})
			require.ErrorIs(t, err, oauth.ErrMissingClientSecret)

			p, err := ctor(creds)
			require.NoError(t, err)
			require.Equal(t, name, p.Name())
		})
	}
}

func TestAuthCodeURL_PKCE(t *testing.T) {
	t.Parallel()

	p, err := oauth.NewTwitter(creds)
	require.NoError(t, err)

	verifier := oauth2.GenerateVerifier()
	raw := p.AuthCodeURL("st", oauth2.S256ChallengeOption(verifier))
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "twitter.com", u.Host)
	require.Equal(t, "st", q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, "users.read tweet.read", q.Get("scope"))
}

// fakeProvider serves a token endpoint and a profile endpoint.
func fakeProvider(t *testing.T, profile string, checkProfile func(*http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "the-code", r.Form.Get("code"))
		require.Equal(t, "the-verifier", r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		checkProfile(r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeAndFetchProfile(t *testing.T) {
	t.Parallel()

	bearer := func(t *testing.T) func(*http.Request) {
		return func(r *http.Request) {
			require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		}
	}

	tests := []struct {
		name    string
		ctor    constructor
		profile string
		check   func(t *testing.T) func(*http.Request)
		want    oauth.Profile
	}{
		{
			name:    oauth.Facebook,
			ctor:    oauth.NewFacebook,
			profile: `{"id":"fb1","name":"Ann","email":"ann@example.com","picture":{"data":{"url":"http://img/a"}}}`,
			check:   bearer,
			want:    oauth.Profile{Provider: oauth.Facebook, ID: "fb1", Name: "Ann", Email: "ann@example.com", Avatar: "http://img/a"},
		},
		{
			name:    oauth.Foursquare,
			ctor:    oauth.NewFoursquare,
			profile: `{"response":{"user":{"id":"fs1","firstName":"Ann","lastName":"Lee","contact":{"email":"ann@example.com"},"photo":{"prefix":"http://img/","suffix":"/a.jpg"}}}}`,
			check: func(t *testing.T) func(*http.Request) {
				return func(r *http.Request) {
					require.Equal(t, "at-1", r.URL.Query().Get("oauth_token"))
					require.Empty(t, r.Header.Get("Authorization"))
				}
			},
			want: oauth.Profile{Provider: oauth.Foursquare, ID: "fs1", Name: "Ann Lee", Email: "ann@example.com", Avatar: "http://img/original/a.jpg"},
		},
		{
			name:    oauth.Twitter,
			ctor:    oauth.NewTwitter,
			profile: `{"data":{"id":"tw1","name":"Ann","username":"ann","profile_image_url":"http://img/t"}}`,
			check:   bearer,
			want:    oauth.Profile{Provider: oauth.Twitter, ID: "tw1", Name: "Ann", Username: "ann", Avatar: "http://img/t"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := fakeProvider(t, tt.profile, tt.check(t))
			p, err := tt.ctor(creds,
				oauth.WithHTTPClient(srv.Client()),
				oauth.WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}),
				oauth.WithProfileURL(srv.URL+"/me"),
			)
			require.NoError(t, err)

			ctx := context.Background()
			tok, err := p.Exchange(ctx, "the-code", oauth2.VerifierOption("the-verifier"))
			require.NoError(t, err)
			require.Equal(t, "at-1", tok.AccessToken)

			got, err := p.FetchProfile(ctx, tok)
			require.NoError(t, err)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestFetchProfile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"non-ok", http.StatusUnauthorized, `{}`, oauth.ErrRequestFailed},
		{"bad json", http.StatusOK, `{`, oauth.ErrDecodeFailed},
		{"no id", http.StatusOK, `{"name":"x"}`, oauth.ErrNoUserID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p, err := oauth.NewFacebook(creds, oauth.WithHTTPClient(srv.Client()), oauth.WithProfileURL(srv.URL))
			require.NoError(t, err)

			_, err = p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "x"})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExchange_Failure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p, err := oauth.NewFacebook(creds,
		oauth.WithHTTPClient(srv.Client()),
		oauth.WithEndpoint(oauth2.Endpoint{TokenURL: srv.URL}),
	)
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), "bad")
	require.ErrorIs(t, err, oauth.ErrExchangeFailed)
}
