// Package id generates the sortable identifiers used for users, pins,
// invites, sessions and request IDs.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
	"time"
)

// Crockford's Base32 alphabet (excludes I, L, O, U).
const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ULIDLength is the length of an encoded ULID.
const ULIDLength = 26

// NewULID returns a 26-character ULID: 48 bits of millisecond timestamp
// followed by 80 random bits, Crockford Base32 encoded.
// ULIDs sort lexicographically by creation time.
func NewULID() string {
	return ulidAt(time.Now())
}

func ulidAt(t time.Time) string {
	var raw [16]byte

	ms := uint64(t.UnixMilli())
	raw[0] = byte(ms >> 40)
	raw[1] = byte(ms >> 32)
	raw[2] = byte(ms >> 24)
	raw[3] = byte(ms >> 16)
	raw[4] = byte(ms >> 8)
	raw[5] = byte(ms)

	if _, err := rand.Read(raw[6:]); err != nil {
		// degraded entropy, still unique per nanosecond
		binary.BigEndian.PutUint64(raw[8:], uint64(t.UnixNano()))
	}

	return encode(raw)
}

// encode packs 128 bits into 26 base32 characters, most significant first.
// The leading character carries only the top 3 bits.
func encode(raw [16]byte) string {
	hi := binary.BigEndian.Uint64(raw[:8])
	lo := binary.BigEndian.Uint64(raw[8:])

	var out [ULIDLength]byte
	for i := ULIDLength - 1; i >= 0; i-- {
		out[i] = crockfordBase32[lo&0x1F]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// IsULID reports whether s looks like a ULID produced by NewULID.
// Used to reject malformed path IDs before they reach the database.
func IsULID(s string) bool {
	if len(s) != ULIDLength {
		return false
	}
	// first char encodes at most 3 bits
	if s[0] > '7' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(crockfordBase32, rune(s[i])) {
			return false
		}
	}
	return true
}
