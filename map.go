package dbcache

import (
	"context"
	"sync"
)

// Map holds independent cache slots keyed by a configuration key, for
// applications that talk to more than one database. Each slot follows the
// same acquire/cache/retry contract as a standalone Cache.
type Map[T any] struct {
	factory func(key string) (*Cache[T], error)

	mu     sync.Mutex
	caches map[string]*Cache[T]
	closed bool
}

// NewMap creates a keyed cache collection. The factory builds the slot for a
// key on its first use; it is called at most once per key.
func NewMap[T any](factory func(key string) (*Cache[T], error)) (*Map[T], error) {
	if factory == nil {
		return nil, &ConfigError{msg: "dbcache: cache factory is required"}
	}
	return &Map[T]{
		factory: factory,
		caches:  make(map[string]*Cache[T]),
	}, nil
}

// Acquire returns the connection handle for key, establishing the slot and
// the connection as needed. Distinct keys never share connect attempts.
func (m *Map[T]) Acquire(ctx context.Context, key string) (T, error) {
	cache, err := m.slot(key)
	if err != nil {
		var zero T
		return zero, err
	}
	return cache.Acquire(ctx)
}

// Invalidate drops the cached handle for key, if any. The slot itself
// survives; the next Acquire for key reconnects.
func (m *Map[T]) Invalidate(key string) {
	m.mu.Lock()
	cache := m.caches[key]
	m.mu.Unlock()

	if cache != nil {
		cache.Invalidate()
	}
}

// Close closes every slot. Subsequent Acquire calls return ErrClosed.
func (m *Map[T]) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	caches := make([]*Cache[T], 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	m.mu.Unlock()

	for _, c := range caches {
		c.Close()
	}
}

// slot returns the cache for key, creating it on first use. Creation is
// serialized under the map lock so a key's factory runs exactly once; the
// factory must not block (the connect itself is deferred to Acquire).
func (m *Map[T]) slot(key string) (*Cache[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if cache, ok := m.caches[key]; ok {
		return cache, nil
	}

	cache, err := m.factory(key)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return nil, &ConfigError{msg: "dbcache: cache factory returned nil for key"}
	}
	m.caches[key] = cache
	return cache, nil
}
