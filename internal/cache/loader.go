package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadFunc builds the value for a key on a miss or a forced refresh.
type LoadFunc[T any] func(ctx context.Context, key string) (T, error)

// Loader fills a Cache on demand. Concurrent loads of the same key share one
// call to the LoadFunc.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	load  LoadFunc[T]
}

func NewLoader[T any](c Cache[T], load LoadFunc[T]) *Loader[T] {
	return &Loader[T]{cache: c, load: load}
}

// Get returns the cached value for key, loading it when absent or expired.
// The bool reports whether the value came from the cache.
func (l *Loader[T]) Get(ctx context.Context, key string) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	v, err := l.Refresh(ctx, key)
	return v, false, err
}

// Refresh reloads key unconditionally and stores the result. A failed load
// leaves the previous entry untouched.
func (l *Loader[T]) Refresh(ctx context.Context, key string) (T, error) {
	res, err, _ := l.group.Do(key, func() (any, error) {
		v, err := l.load(ctx, key)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops the cached value for key.
func (l *Loader[T]) Invalidate(key string) {
	l.cache.Delete(key)
}
