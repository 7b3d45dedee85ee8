package cache

import (
	"sync"
	"time"
)

// CacheItem represents a cached item with expiration
type CacheItem[V any] struct {
	Value     V
	ExpiresAt time.Time
	CreatedAt time.Time
}

// expiredAt reports whether the item is expired at now.
func (item *CacheItem[V]) expiredAt(now time.Time) bool {
	return !now.Before(item.ExpiresAt)
}

// Cache is a thread-safe in-memory cache with per-key TTL. Expired entries are
// invisible to readers immediately and physically removed by Sweep, which a
// background goroutine started with StartSweeper calls periodically.
type Cache[V any] struct {
	items map[string]*CacheItem[V]
	mu    sync.Mutex
	now   func() time.Time

	stopOnce sync.Once
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithClock overrides the wall clock, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		c.now = now
	}
}

// New creates an empty cache. No goroutine is started until StartSweeper.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]*CacheItem[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores a value under key for ttl.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.items[key] = &CacheItem[V]{
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

// Get retrieves a live value from cache.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, exists := c.items[key]
	if !exists {
		return zero, false
	}
	if item.expiredAt(c.now()) {
		delete(c.items, key)
		return zero, false
	}
	return item.Value, true
}

// Take removes key and returns its value if it was present and not expired.
// Lookup and removal happen under one lock, so among concurrent callers for
// the same key at most one observes ok == true.
func (c *Cache[V]) Take(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, exists := c.items[key]
	if !exists {
		return zero, false
	}
	delete(c.items, key)
	if item.expiredAt(c.now()) {
		return zero, false
	}
	return item.Value, true
}

// Delete removes a key from cache
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// Clear removes all items from cache
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*CacheItem[V])
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if item.expiredAt(now) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until Stop. onSweep, if non-nil,
// receives the number of entries removed by each pass.
func (c *Cache[V]) StartSweeper(interval time.Duration, onSweep func(removed int)) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := c.Sweep()
				if onSweep != nil {
					onSweep(removed)
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop stops the sweeper goroutine and waits for it to exit. Safe to call
// more than once, and safe when StartSweeper was never called.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

// Size returns the number of items in cache, expired or not.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
type Stats struct {
	Total   int
	Active  int
	Expired int
}

// GetStats returns cache statistics
func (c *Cache[V]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{Total: len(c.items)}
	for _, item := range c.items {
		if item.expiredAt(now) {
			stats.Expired++
		}
	}
	stats.Active = stats.Total - stats.Expired
	return stats
}
