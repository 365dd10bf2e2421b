package resend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/pkg/mailer"
	"github.com/pinspot/api/pkg/mailer/resend"
)

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()
	_, err := resend.New(resend.Config{})
	require.ErrorIs(t, err, resend.ErrNoAPIKey)
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email_1"}`))
	}))
	defer srv.Close()

	s, err := resend.New(resend.Config{APIKey: "re_test", SenderEmail: "hi@pinspot.io", SenderName: "Pinspot"}, resend.WithBaseURL(srv.URL))
	require.NoError(t, err)

	err = s.Send(context.Background(), &mailer.Email{
		To:      []string{"ann@example.com"},
		Subject: "Hello",
		HTML:    "<p>Hi</p>",
		Tags:    map[string]string{"category": "invite"},
	})
	require.NoError(t, err)
	require.Equal(t, "Pinspot <hi@pinspot.io>", got["from"])
	require.Equal(t, "Hello", got["subject"])
}
