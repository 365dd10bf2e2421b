package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisOption configures a Redis cache.
type RedisOption[V any] func(*Redis[V])

// WithRedisTTL sets the ttl used when Set gets zero. Default: 1 hour.
func WithRedisTTL[V any](d time.Duration) RedisOption[V] {
	return func(r *Redis[V]) { r.ttl = d }
}

// WithCodec replaces the JSON codec.
func WithCodec[V any](c Codec[V]) RedisOption[V] {
	return func(r *Redis[V]) { r.codec = c }
}

// Redis stores encoded values under "{namespace}:{key}".
// The client lifecycle belongs to the caller.
type Redis[V any] struct {
	client    goredis.UniversalClient
	namespace string
	codec     Codec[V]
	ttl       time.Duration
}

func NewRedis[V any](client goredis.UniversalClient, namespace string, opts ...RedisOption[V]) *Redis[V] {
	r := &Redis[V]{
		client:    client,
		namespace: namespace,
		codec:     JSON[V]{},
		ttl:       time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	return r.codec.Decode(raw)
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := r.codec.Encode(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = r.ttl
	}
	// go-redis treats 0 as "no expiry".
	return r.client.Set(ctx, r.key(key), raw, max(ttl, 0)).Err()
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis[V]) Close() error { return nil }

func (r *Redis[V]) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

var _ Cache[any] = (*Redis[any])(nil)
