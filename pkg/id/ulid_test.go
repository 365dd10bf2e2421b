package id

import (
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	t.Run("length and alphabet", func(t *testing.T) {
		t.Parallel()
		u := NewULID()
		require.Len(t, u, ULIDLength)
		require.Regexp(t, regexp.MustCompile(`^[0-7][0-9A-HJKMNP-TV-Z]{25}$`), u)
	})

	t.Run("unique", func(t *testing.T) {
		t.Parallel()
		seen := make(map[string]struct{}, 1000)
		for range 1000 {
			u := NewULID()
			_, dup := seen[u]
			require.False(t, dup, "duplicate ULID %s", u)
			seen[u] = struct{}{}
		}
	})

	t.Run("sorts by time", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		ids := []string{
			ulidAt(base.Add(2 * time.Millisecond)),
			ulidAt(base),
			ulidAt(base.Add(time.Millisecond)),
		}
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		require.Equal(t, []string{ids[1], ids[2], ids[0]}, sorted)
	})

	t.Run("timestamp prefix is stable", func(t *testing.T) {
		t.Parallel()
		ts := time.UnixMilli(1700000000000)
		require.Equal(t, ulidAt(ts)[:10], ulidAt(ts)[:10])
	})
}

func TestIsULID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"generated", NewULID(), true},
		{"empty", "", false},
		{"too short", "01ARZ3NDEKTSV4RRFFQ69G5FA", false},
		{"lower case", "01arz3ndektsv4rrffq69g5fav", false},
		{"forbidden letter", "01ARZ3NDEKTSV4RRFFQ69G5FAU", false},
		{"overflow first char", "81ARZ3NDEKTSV4RRFFQ69G5FAV", false},
		{"canonical example", "01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, IsULID(tt.in))
		})
	}
}
