package dbcache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ConnectFunc establishes a new connection handle. It is called at most once
// per attempt, on a context bounded by the cache's connect timeout rather
// than by any single caller's context.
type ConnectFunc[T any] func(ctx context.Context) (T, error)

// Cache is a process-wide slot holding at most one connection handle of type
// T. Acquire returns the cached handle when present; otherwise it joins the
// single in-flight connect attempt, starting one if none exists. A failed
// attempt is reported to every caller waiting on it and is not cached, so
// the next Acquire retries.
//
// Construct one Cache per process (typically in main) and pass it to
// consumers. All methods are safe for concurrent use.
type Cache[T any] struct {
	connect        ConnectFunc[T]
	closeFn        func(T)
	probe          func(ctx context.Context, handle T) error
	probeInterval  time.Duration
	connectTimeout time.Duration
	logger         *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	handle   T
	ok       bool
	gen      uint64
	probedAt time.Time
	closed   bool
}

// CacheOption configures a Cache.
type CacheOption[T any] func(*Cache[T])

// WithClose sets the function used to release a handle on Invalidate, on
// Close, and for a handle that finishes connecting after Close.
func WithClose[T any](fn func(T)) CacheOption[T] {
	return func(c *Cache[T]) {
		c.closeFn = fn
	}
}

// WithProbe enables liveness probing of the cached handle. On a cache hit at
// most once per interval, probe is called with the caller's context; if it
// fails, the handle is evicted and the Acquire falls through to a fresh
// connect attempt. An interval of zero probes on every hit.
func WithProbe[T any](probe func(ctx context.Context, handle T) error, interval time.Duration) CacheOption[T] {
	return func(c *Cache[T]) {
		c.probe = probe
		c.probeInterval = interval
	}
}

// WithConnectTimeout bounds each connect attempt. Zero means no bound.
func WithConnectTimeout[T any](d time.Duration) CacheOption[T] {
	return func(c *Cache[T]) {
		c.connectTimeout = d
	}
}

// WithLogger sets the logger for attempt and eviction events.
func WithLogger[T any](l *slog.Logger) CacheOption[T] {
	return func(c *Cache[T]) {
		c.logger = l
	}
}

// NewCache creates an empty cache slot. No connection is attempted until the
// first Acquire.
func NewCache[T any](connect ConnectFunc[T], opts ...CacheOption[T]) (*Cache[T], error) {
	if connect == nil {
		return nil, &ConfigError{msg: "dbcache: connect function is required"}
	}

	c := &Cache[T]{connect: connect}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Acquire returns the connection handle, establishing it on first use.
//
// When the handle is already cached, Acquire returns it without blocking.
// Otherwise the caller waits on the single in-flight connect attempt; ctx
// governs only this caller's wait, not the attempt itself. A caller that
// stops waiting does not abort the attempt for the others, and a completed
// attempt may still populate the cache for later callers.
func (c *Cache[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return zero, ErrClosed
	}
	if c.ok {
		handle := c.handle
		gen := c.gen
		stale := c.probe != nil && time.Since(c.probedAt) >= c.probeInterval
		c.mu.RUnlock()

		if !stale {
			return handle, nil
		}
		if err := c.probe(ctx, handle); err != nil {
			c.logger.Warn("dbcache: cached handle failed liveness probe, evicting", "error", err)
			c.evict(gen)
		} else {
			c.markProbed(gen)
			return handle, nil
		}
	} else {
		c.mu.RUnlock()
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		return c.runAttempt()
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// runAttempt is the body of the single in-flight connect. It re-checks the
// realized slot first: a racing attempt may have populated the cache between
// the caller's fast-path miss and joining the flight.
func (c *Cache[T]) runAttempt() (T, error) {
	var zero T

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return zero, ErrClosed
	}
	if c.ok {
		handle := c.handle
		c.mu.RUnlock()
		return handle, nil
	}
	c.mu.RUnlock()

	ctx := context.Background()
	if c.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.connectTimeout)
		defer cancel()
	}

	c.logger.Debug("dbcache: starting connect attempt")
	handle, err := c.connect(ctx)
	if err != nil {
		c.logger.Warn("dbcache: connect attempt failed", "error", err)
		return zero, wrapConnectErr(err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if c.closeFn != nil {
			c.closeFn(handle)
		}
		return zero, ErrClosed
	}
	c.handle = handle
	c.ok = true
	c.gen++
	c.probedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("dbcache: connect attempt succeeded")
	return handle, nil
}

// markProbed records a successful probe, unless the probed handle has
// already been replaced.
func (c *Cache[T]) markProbed(gen uint64) {
	c.mu.Lock()
	if c.ok && c.gen == gen {
		c.probedAt = time.Now()
	}
	c.mu.Unlock()
}

// evict drops the cached handle if it is still the one identified by gen.
func (c *Cache[T]) evict(gen uint64) {
	var zero T

	c.mu.Lock()
	if !c.ok || c.gen != gen {
		c.mu.Unlock()
		return
	}
	handle := c.handle
	c.handle = zero
	c.ok = false
	c.mu.Unlock()

	if c.closeFn != nil {
		c.closeFn(handle)
	}
}

// Invalidate drops the cached handle, releasing it via the configured close
// function. The next Acquire establishes a fresh connection. Callers use
// this when the handle is known dead, e.g. after a network partition.
func (c *Cache[T]) Invalidate() {
	c.mu.RLock()
	ok := c.ok
	gen := c.gen
	c.mu.RUnlock()

	if !ok {
		return
	}
	c.logger.Debug("dbcache: handle invalidated")
	c.evict(gen)
}

// Close releases the cached handle and marks the cache closed. Subsequent
// Acquire calls return ErrClosed. Call once during graceful shutdown.
func (c *Cache[T]) Close() {
	var zero T

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	had := c.ok
	handle := c.handle
	c.handle = zero
	c.ok = false
	c.mu.Unlock()

	if had && c.closeFn != nil {
		c.closeFn(handle)
	}
}

// wrapConnectErr ensures connect failures surface as *ConnectError without
// double-wrapping errors the connect function already classified.
func wrapConnectErr(err error) error {
	var connectErr *ConnectError
	var configErr *ConfigError
	if errors.As(err, &connectErr) || errors.As(err, &configErr) {
		return err
	}
	return &ConnectError{msg: "dbcache: connect attempt failed", cause: err}
}
