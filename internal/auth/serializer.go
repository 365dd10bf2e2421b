package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/pinspot/api/internal/schema"
	"github.com/pinspot/api/pkg/cache"
)

// DefaultUserCacheTTL bounds how stale a ByID lookup may be.
const DefaultUserCacheTTL = 5 * time.Minute

// Serializer converts the session user to and from its stored form.
type Serializer interface {
	Serialize(ctx context.Context, u *schema.User) (string, error)
	Deserialize(ctx context.Context, v string) (*schema.User, error)
}

// Forgetter is implemented by serializers that cache users.
type Forgetter interface {
	Forget(ctx context.Context, userID string) error
}

// UserFinder loads a user by ID.
type UserFinder interface {
	ByID(ctx context.Context, id string) (*schema.User, error)
}

type fullUser struct{}

// FullUser stores the whole user as JSON. Requests need no lookup; profile
// changes show up after the next login.
func FullUser() Serializer { return fullUser{} }

func (fullUser) Serialize(_ context.Context, u *schema.User) (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (fullUser) Deserialize(_ context.Context, v string) (*schema.User, error) {
	var u schema.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil, errors.Join(ErrInvalidSession, err)
	}
	if u.ID == "" {
		return nil, ErrInvalidSession
	}
	return &u, nil
}

type byID struct {
	users UserFinder
	cache cache.Cache[schema.User]
	ttl   time.Duration
}

// ByID stores only the user ID and resolves it through a cached lookup.
// Concurrent misses for one ID share a single query.
func ByID(users UserFinder, c cache.Cache[schema.User], ttl time.Duration) Serializer {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &byID{users: users, cache: c, ttl: ttl}
}

func (s *byID) Serialize(_ context.Context, u *schema.User) (string, error) {
	if u == nil || u.ID == "" {
		return "", ErrInvalidSession
	}
	return u.ID, nil
}

func (s *byID) Deserialize(ctx context.Context, v string) (*schema.User, error) {
	if v == "" {
		return nil, ErrInvalidSession
	}
	u, err := cache.GetOrSet(ctx, s.cache, cacheKey(v), func(ctx context.Context) (schema.User, time.Duration, error) {
		u, err := s.users.ByID(ctx, v)
		if err != nil {
			return schema.User{}, 0, err
		}
		return *u, s.ttl, nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *byID) Forget(ctx context.Context, userID string) error {
	return s.cache.Delete(ctx, cacheKey(userID))
}

func cacheKey(userID string) string { return "user:" + userID }
