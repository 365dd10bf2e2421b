package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

var loads singleflight.Group

type loaded[V any] struct {
	value V
	ttl   time.Duration
}

// Loader computes a value on a cache miss together with the ttl to store it for.
type Loader[V any] func(ctx context.Context) (V, time.Duration, error)

// GetOrSet returns the cached value for key or computes it with load.
// Concurrent misses for the same key and value type share a single load.
// Load errors are returned and nothing is cached.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, load Loader[V]) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	var zero V
	flight := fmt.Sprintf("%T|%s", zero, key)
	res, err, _ := loads.Do(flight, func() (any, error) {
		v, ttl, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return loaded[V]{value: v, ttl: ttl}, nil
	})
	if err != nil {
		return zero, err
	}

	l := res.(loaded[V])
	_ = c.Set(ctx, key, l.value, l.ttl)
	return l.value, nil
}
