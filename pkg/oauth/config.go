package oauth

// Config is the client registration for one provider. RedirectURL is the
// absolute callback URL registered with the provider.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func (c Config) validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	return nil
}

// Configured reports whether both credentials are present.
func (c Config) Configured() bool { return c.validate() == nil }
