package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pinspot/api/pkg/password"
)

// cheap keeps the suite fast; production uses Default.
func cheap() *password.Hasher {
	return &password.Hasher{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}
}

func TestHashVerify(t *testing.T) {
	t.Parallel()

	h := cheap()
	enc, err := h.Hash("correct horse")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enc, "$argon2id$v=19$m=1024,t=1,p=1$"))

	require.NoError(t, h.Verify("correct horse", enc))
	require.ErrorIs(t, h.Verify("wrong", enc), password.ErrMismatch)

	// Parameters travel with the hash.
	require.NoError(t, password.Default().Verify("correct horse", enc))
}

func TestHash_Salted(t *testing.T) {
	t.Parallel()

	a, err := cheap().Hash("same")
	require.NoError(t, err)
	b, err := cheap().Hash("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		enc  string
		want error
	}{
		{"empty", "", password.ErrMalformedHash},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv", password.ErrMalformedHash},
		{"argon2i", "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5", password.ErrAlgorithm},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", password.ErrMalformedHash},
		{"bad salt", "$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5", password.ErrMalformedHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, cheap().Verify("x", tt.enc), tt.want)
		})
	}
}
