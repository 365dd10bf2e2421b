// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pinspot/api/pkg/logger"
	"github.com/pinspot/api/pkg/mailchimp"
	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/mailer/resend"
	"github.com/pinspot/api/pkg/monitor"
	"github.com/pinspot/api/pkg/oauth"
	"github.com/pinspot/api/pkg/slack"
)

// Session serialization modes.
const (
	SerializeFull = "full"
	SerializeID   = "id"
)

// Config is the full process configuration. Secrets are not validated here;
// the component that needs one fails when it is missing.
type Config struct {
	Port            int           `env:"PORT" envDefault:"5000"`
	APIName         string        `env:"API_NAME" envDefault:"pinspot"`
	MongoURI        string        `env:"MONGO_URI"`
	MongoDatabase   string        `env:"MONGO_DATABASE"`
	RedisURL        string        `env:"REDIS_URL"`
	BearerSignature string        `env:"BEARER_SIGNATURE"`
	BearerTTL       time.Duration `env:"BEARER_TTL" envDefault:"720h"`

	Session Session
	OAuth   OAuth

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	Logger    logger.Config
	Monitor   monitor.Config
	Mailer    mailer.Config
	Resend    resend.Config
	Slack     slack.Config
	Mailchimp mailchimp.Config
}

// Session configures the cookie session layer.
type Session struct {
	Key       string        `env:"SESSION_KEY"`
	Serialize string        `env:"SESSION_SERIALIZE" envDefault:"full"`
	MaxAge    time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	Secure    bool          `env:"SESSION_SECURE" envDefault:"false"`
}

// Provider holds the client credentials for one OAuth provider.
type Provider struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// OAuth holds the credentials of every supported provider.
type OAuth struct {
	CallbackBaseURL string `env:"OAUTH_CALLBACK_BASE_URL" envDefault:"http://localhost:5000"`

	Facebook   Provider `envPrefix:"FACEBOOK_"`
	Foursquare Provider `envPrefix:"FOURSQUARE_"`
	Twitter    Provider `envPrefix:"TWITTER_"`
}

// Provider returns the oauth.Config for name with its callback URL set.
func (o OAuth) Provider(name string) oauth.Config {
	var p Provider
	switch name {
	case "facebook":
		p = o.Facebook
	case "foursquare":
		p = o.Foursquare
	case "twitter":
		p = o.Twitter
	}
	return oauth.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  strings.TrimRight(o.CallbackBaseURL, "/") + "/auth/" + name + "/callback",
	}
}

// Load reads .env when PORT is not already set, then parses the environment.
// A missing .env is not an error and set variables are never overridden.
func Load() (*Config, error) {
	return load(".env")
}

func load(dotenv string) (*Config, error) {
	if _, ok := os.LookupEnv("PORT"); !ok {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
