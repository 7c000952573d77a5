package cache

import (
	"errors"
	"path"
	"sync"
	"time"
)

// ErrClosed is returned by Ping after the cache has been shut down.
var ErrClosed = errors.New("cache: closed")

const sweepInterval = time.Hour

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-process TTL key/value gate for serialized response
// envelopes. Expired entries are evicted lazily on read and swept hourly.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]entry
	defaultTTL time.Duration
	done       chan struct{}
	closeOnce  sync.Once
}

// New builds a cache whose Set falls back to defaultTTL when no explicit TTL
// is given, and starts the background sweeper.
func New(defaultTTL time.Duration) *Cache {
	c := &Cache{
		items:      make(map[string]entry),
		defaultTTL: defaultTTL,
		done:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the value stored under key, or false on a miss or an expired
// entry.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, still := c.items[key]; still && time.Now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A non-positive ttl selects the configured
// default.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// ClearPattern removes every key matching the glob pattern, e.g. "markets:*".
func (c *Cache) ClearPattern(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if ok, err := path.Match(pattern, key); err == nil && ok {
			delete(c.items, key)
		}
	}
}

// Ping reports whether the cache is still usable.
func (c *Cache) Ping() error {
	select {
	case <-c.done:
		return ErrClosed
	default:
		return nil
	}
}

// Close stops the background sweeper.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
		}
	}
}
