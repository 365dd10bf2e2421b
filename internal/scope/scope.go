// Package scope maps roles to the scopes they hold.
package scope

import (
	"maps"
	"slices"

	"github.com/pinspot/api/internal/schema"
)

// Scopes.
const (
	UsersReadSelf  = "users:read:self"
	UsersWriteSelf = "users:write:self"
	UsersList      = "users:list"
	UsersWrite     = "users:write"
	UsersDelete    = "users:delete"
	PinsCreate     = "pins:create"
	PinsWriteOwn   = "pins:write:own"
	PinsWrite      = "pins:write"
	PinsDeleteOwn  = "pins:delete:own"
	PinsDelete     = "pins:delete"
	InvitesCreate  = "invites:create"
)

// Set maps a role to its scopes.
type Set map[string][]string

// Default returns the pinspot roles. Admin holds everything user holds.
func Default() Set {
	user := []string{UsersReadSelf, UsersWriteSelf, PinsCreate, PinsWriteOwn, PinsDeleteOwn, InvitesCreate}
	admin := append(slices.Clone(user), UsersList, UsersWrite, UsersDelete, PinsWrite, PinsDelete)
	return Set{
		schema.RoleUser:  user,
		schema.RoleAdmin: admin,
	}
}

// Has reports whether role holds scope. Unknown roles hold nothing.
func (s Set) Has(role, scope string) bool {
	return slices.Contains(s[role], scope)
}

// Merge returns a new set holding the union of s and other.
func (s Set) Merge(other Set) Set {
	out := make(Set, len(s)+len(other))
	for role, scopes := range s {
		out[role] = slices.Clone(scopes)
	}
	for role, scopes := range other {
		for _, sc := range scopes {
			if !slices.Contains(out[role], sc) {
				out[role] = append(out[role], sc)
			}
		}
	}
	return out
}

// Roles returns the known roles, sorted.
func (s Set) Roles() []string {
	return slices.Sorted(maps.Keys(s))
}
