package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores values of one type under string keys.
//
// A zero ttl passed to Set means the backend default; a negative ttl keeps
// the entry until it is deleted.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Codec turns values into bytes for backends that cannot hold Go values.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// JSON is the default codec.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return b, nil
}

func (JSON[V]) Decode(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrDecode, err)
	}
	return v, nil
}

// New picks a backend: Redis under the given namespace when a client is
// provided, otherwise an in-process memory cache.
func New[V any](client goredis.UniversalClient, namespace string, ttl time.Duration) Cache[V] {
	if client != nil {
		return NewRedis[V](client, namespace, WithRedisTTL[V](ttl))
	}
	return NewMemory[V](WithDefaultTTL(ttl))
}
