package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the in-memory cache settings.
type Config struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	MaxItems        int
	OnEviction      func(key string, value any)
}

type item struct {
	value      any
	expiration int64
}

// Cache is a concurrency-safe in-memory cache with TTL expiration and a
// soft item limit.
type Cache struct {
	config Config
	data   sync.Map
	count  atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a cache and starts its cleanup loop.
func New(config Config) *Cache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 10 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	c := &Cache{
		config: config,
		stopCh: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.SetWithTTL(ctx, key, value, c.config.DefaultTTL)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(_ context.Context, key string, value any, ttl time.Duration) {
	if _, loaded := c.data.Load(key); !loaded {
		if c.config.MaxItems > 0 && int(c.count.Load()) >= c.config.MaxItems {
			c.evictOne()
		}
		c.count.Add(1)
	}
	c.data.Store(key, item{value: value, expiration: time.Now().Add(ttl).UnixNano()})
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (any, bool) {
	raw, ok := c.data.Load(key)
	if !ok {
		return nil, false
	}
	it := raw.(item)
	if time.Now().UnixNano() > it.expiration {
		c.remove(key, it)
		return nil, false
	}
	return it.value, true
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) {
	if raw, ok := c.data.Load(key); ok {
		c.remove(key, raw.(item))
	}
}

// Size returns the number of stored items, including expired ones not yet collected.
func (c *Cache) Size() int64 {
	return c.count.Load()
}

// Close stops the cleanup loop.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *Cache) remove(key string, it item) {
	if _, loaded := c.data.LoadAndDelete(key); loaded {
		c.count.Add(-1)
		if c.config.OnEviction != nil {
			c.config.OnEviction(key, it.value)
		}
	}
}

// evictOne drops the entry closest to expiry.
func (c *Cache) evictOne() {
	var (
		victim   string
		victimIt item
		found    bool
		earliest int64
	)
	c.data.Range(func(key, value any) bool {
		it := value.(item)
		if !found || it.expiration < earliest {
			victim, victimIt, earliest, found = key.(string), it, it.expiration, true
		}
		return true
	})
	if found {
		c.remove(victim, victimIt)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now().UnixNano()
			c.data.Range(func(key, value any) bool {
				if it := value.(item); now > it.expiration {
					c.remove(key.(string), it)
				}
				return true
			})
		case <-c.stopCh:
			return
		}
	}
}
