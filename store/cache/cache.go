// Package cache provides a bounded in-process cache with LRU eviction and
// TTL expiry. It backs the render cache's fast tier and the store's read
// caches; eviction here never touches durable state.
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Config holds the cache configuration.
type Config struct {
	// MaxItems bounds the cache size; the least recently used entry is
	// evicted when the bound is hit (default: 1000).
	MaxItems int
	// DefaultTTL is applied to entries stored without an explicit TTL
	// (default: 10 minutes).
	DefaultTTL time.Duration
	// CleanupInterval is how often expired entries are swept
	// (default: 1 minute).
	CleanupInterval time.Duration
	// OnEviction, if set, is called after an entry is evicted or expired.
	OnEviction func(key string, value any)
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time
	element   *list.Element
}

// Cache is a bounded LRU cache with TTL support.
type Cache struct {
	config Config
	mu     sync.Mutex
	data   map[string]*entry
	order  *list.List

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new cache and starts its background cleanup loop.
func New(config Config) *Cache {
	if config.MaxItems <= 0 {
		config.MaxItems = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		config: config,
		data:   make(map[string]*entry),
		order:  list.New(),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get retrieves a value from the cache.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}

	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.data[key]; ok {
		e.value = value
		e.expiresAt = time.Now().Add(ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.data) >= c.config.MaxItems {
		c.evictOldest()
	}

	e := &entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	e.element = c.order.PushFront(e)
	c.data[key] = e
}

// Delete removes a value from the cache.
func (c *Cache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.data[key]; ok {
		c.removeEntry(e)
	}
}

// Size returns the number of entries in the cache.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*entry)
	c.order.Init()
}

// Close stops the cleanup loop.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// evictOldest removes the least recently used entry.
// Must be called with the lock held.
func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry))
}

// removeEntry removes an entry and fires the eviction hook.
// Must be called with the lock held.
func (c *Cache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.data, e.key)
	if c.config.OnEviction != nil {
		c.config.OnEviction(e.key, e.value)
	}
}

func (c *Cache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.cleanupExpired()
		}
	}
}

func (c *Cache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []*entry
	now := time.Now()
	for _, e := range c.data {
		if now.After(e.expiresAt) {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		c.removeEntry(e)
	}
}
