package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017/pins")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "pinspot", cfg.APIName)
	assert.Equal(t, "mongodb://localhost:27017/pins", cfg.MongoURI)
	assert.Equal(t, 720*time.Hour, cfg.BearerTTL)
	assert.Equal(t, SerializeFull, cfg.Session.Serialize)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Empty(t, cfg.Session.Key)
}

func TestLoad_DotEnvWhenPortUnset(t *testing.T) {
	// t.Setenv registers a restore so the unset below is undone after the test.
	t.Setenv("PORT", "")
	require.NoError(t, os.Unsetenv("PORT"))
	t.Setenv("API_NAME", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=6000\nAPI_NAME=from-file\nSESSION_SERIALIZE=id\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SESSION_SERIALIZE")
	})

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "from-env", cfg.APIName)
	assert.Equal(t, SerializeID, cfg.Session.Serialize)
}

func TestLoad_DotEnvSkippedWhenPortSet(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("SLACK_CHANNEL", "")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SLACK_CHANNEL=#ignored\n"), 0o600))

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Slack.Channel)
}

func TestLoad_Lists(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("FACEBOOK_CLIENT_ID", "fb-id")
	t.Setenv("FACEBOOK_CLIENT_SECRET", "fb-secret")
	t.Setenv("OAUTH_CALLBACK_BASE_URL", "https://api.pinspot.app/")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	fb := cfg.OAuth.Provider("facebook")
	assert.True(t, fb.Configured())
	assert.Equal(t, "https://api.pinspot.app/auth/facebook/callback", fb.RedirectURL)
	assert.False(t, cfg.OAuth.Provider("twitter").Configured())
}
