// Package schema declares the pinspot entities and the collection layout
// handed to the App with AddSchema.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Collection names.
const (
	Users   = "users"
	Pins    = "pins"
	Invites = "invites"
)

// Index key kinds.
const (
	Asc      = "asc"
	Desc     = "desc"
	Text     = "text"
	Sphere2D = "2dsphere"
)

var ErrInvalidDefinition = errors.New("schema: invalid definition")

// Key is one field of an index.
type Key struct {
	Field string
	Kind  string
}

// Index describes a collection index.
type Index struct {
	Name   string
	Keys   []Key
	Unique bool
	Sparse bool
}

// Collection is a named collection with its indexes.
type Collection struct {
	Name    string
	Indexes []Index
}

// Definition is the declarative data shape of the application.
type Definition struct {
	Collections []Collection
}

// Default returns the pinspot schema.
func Default() Definition {
	return Definition{Collections: []Collection{
		{
			Name: Users,
			Indexes: []Index{
				{Name: "users_email", Keys: []Key{{"email", Asc}}, Unique: true, Sparse: true},
				{Name: "users_username", Keys: []Key{{"username", Asc}}, Unique: true, Sparse: true},
				{Name: "users_providers_facebook", Keys: []Key{{"providers.facebook", Asc}}, Sparse: true},
				{Name: "users_providers_foursquare", Keys: []Key{{"providers.foursquare", Asc}}, Sparse: true},
				{Name: "users_providers_twitter", Keys: []Key{{"providers.twitter", Asc}}, Sparse: true},
			},
		},
		{
			Name: Pins,
			Indexes: []Index{
				{Name: "pins_text", Keys: []Key{{"title", Text}, {"description", Text}, {"tags", Text}}},
				{Name: "pins_location", Keys: []Key{{"location", Sphere2D}}},
				{Name: "pins_user_id", Keys: []Key{{"user_id", Asc}, {"created_at", Desc}}},
			},
		},
		{
			Name: Invites,
			Indexes: []Index{
				{Name: "invites_code", Keys: []Key{{"code", Asc}}, Unique: true},
				{Name: "invites_email", Keys: []Key{{"email", Asc}}, Unique: true},
			},
		},
	}}
}

// Validate checks names and key kinds.
func (d Definition) Validate() error {
	seen := make(map[string]bool, len(d.Collections))
	for _, c := range d.Collections {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: collection without name", ErrInvalidDefinition)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidDefinition, c.Name)
		}
		seen[c.Name] = true
		for _, idx := range c.Indexes {
			if idx.Name == "" || len(idx.Keys) == 0 {
				return fmt.Errorf("%w: %s: index needs a name and keys", ErrInvalidDefinition, c.Name)
			}
			for _, k := range idx.Keys {
				switch k.Kind {
				case Asc, Desc, Text, Sphere2D:
				default:
					return fmt.Errorf("%w: %s.%s: unknown key kind %q", ErrInvalidDefinition, c.Name, idx.Name, k.Kind)
				}
			}
		}
	}
	return nil
}

// Merge returns d with other's collections appended. A collection present in
// both takes other's indexes in addition to its own.
func (d Definition) Merge(other Definition) Definition {
	out := Definition{Collections: make([]Collection, 0, len(d.Collections)+len(other.Collections))}
	pos := make(map[string]int)
	for _, c := range append(append([]Collection(nil), d.Collections...), other.Collections...) {
		if i, ok := pos[c.Name]; ok {
			out.Collections[i].Indexes = append(out.Collections[i].Indexes, c.Indexes...)
			continue
		}
		pos[c.Name] = len(out.Collections)
		out.Collections = append(out.Collections, Collection{
			Name:    c.Name,
			Indexes: append([]Index(nil), c.Indexes...),
		})
	}
	return out
}

// Collection returns the named collection.
func (d Definition) Collection(name string) (Collection, bool) {
	for _, c := range d.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}
