package session

import (
	"context"
	"errors"
	"time"

	"github.com/pinspot/api/pkg/cache"
)

// CacheStore keeps sessions in a pkg/cache backend (in-memory or Redis).
// Sessions are keyed by ID; a second cache maps cookie tokens to IDs so a
// rotated token invalidates the old one.
type CacheStore struct {
	sessions cache.Cache[Session]
	tokens   cache.Cache[string]
}

// NewCacheStore builds a store from two caches. Entry TTLs follow each
// session's ExpiresAt.
//
// Example:
//
//	store := session.NewCacheStore(
//	    cache.NewRedis[session.Session](client, "sess"),
//	    cache.NewRedis[string](client, "sesstok"),
//	)
func NewCacheStore(sessions cache.Cache[Session], tokens cache.Cache[string]) *CacheStore {
	return &CacheStore{sessions: sessions, tokens: tokens}
}

// Create implements Store.
func (st *CacheStore) Create(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	if err := st.sessions.Set(ctx, s.ID, *s.clone(), ttl); err != nil {
		return err
	}
	return st.tokens.Set(ctx, s.Token, s.ID, ttl)
}

// Get implements Store.
func (st *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	id, err := st.tokens.Get(ctx, token)
	if err != nil {
		return nil, notFound(err)
	}

	s, err := st.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Token != token {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		_ = st.Delete(ctx, s.ID)
		return nil, ErrExpired
	}
	return s, nil
}

// Update implements Store.
func (st *CacheStore) Update(ctx context.Context, s *Session) error {
	prev, err := st.load(ctx, s.ID)
	if err != nil {
		return err
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	if prev.Token != s.Token {
		if err := st.tokens.Delete(ctx, prev.Token); err != nil {
			return err
		}
	}
	if err := st.sessions.Set(ctx, s.ID, *s.clone(), ttl); err != nil {
		return err
	}
	return st.tokens.Set(ctx, s.Token, s.ID, ttl)
}

// Delete implements Store.
func (st *CacheStore) Delete(ctx context.Context, id string) error {
	s, err := st.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := st.tokens.Delete(ctx, s.Token); err != nil {
		return err
	}
	return st.sessions.Delete(ctx, id)
}

// Touch implements Store.
func (st *CacheStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	s, err := st.load(ctx, id)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	return st.sessions.Set(ctx, id, *s, ttl)
}

func (st *CacheStore) load(ctx context.Context, id string) (*Session, error) {
	s, err := st.sessions.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	cp := s.clone()
	cp.dirty = false
	cp.isNew = false
	return cp, nil
}

func notFound(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

var _ Store = (*CacheStore)(nil)
