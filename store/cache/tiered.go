package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// TieredCache implements a three-tier caching strategy:
//   - L1: In-memory cache (fast, small, always on)
//   - L2: Redis cache (shared, optional)
//   - L3: Database callback (slow, persistent)
type TieredCache struct {
	l1 *Cache
	l2 RedisCacheInterface
}

// L3Fetcher loads the payload from the database. A nil payload with a nil
// error means the row does not exist and nothing is cached.
type L3Fetcher func(ctx context.Context, key string) ([]byte, error)

// TieredCacheConfig holds the configuration for the tiered cache.
type TieredCacheConfig struct {
	L1MaxItems int
	L1TTL      time.Duration
	// L2 is optional; nil disables the second tier.
	L2 RedisCacheInterface
}

// DefaultTieredConfig returns the default tiered cache configuration.
func DefaultTieredConfig() *TieredCacheConfig {
	return &TieredCacheConfig{
		L1MaxItems: 1000,
		L1TTL:      5 * time.Minute,
	}
}

// NewTieredCache creates a new three-tier cache.
func NewTieredCache(config *TieredCacheConfig) *TieredCache {
	if config == nil {
		config = DefaultTieredConfig()
	}
	l2 := config.L2
	if l2 == nil {
		l2 = NewNilRedisCache()
	}
	return &TieredCache{
		l1: New(Config{
			DefaultTTL:      config.L1TTL,
			CleanupInterval: time.Minute,
			MaxItems:        config.L1MaxItems,
		}),
		l2: l2,
	}
}

// Get checks L1, then L2, then the fetcher, populating the faster tiers on the way back.
func (t *TieredCache) Get(ctx context.Context, key string, fetcher L3Fetcher) ([]byte, bool, error) {
	if value, found := t.l1.Get(ctx, key); found {
		return value.([]byte), true, nil
	}

	if value, found := t.l2.Get(ctx, key); found {
		t.l1.Set(ctx, key, value)
		return value, true, nil
	}

	if fetcher == nil {
		return nil, false, nil
	}
	value, err := fetcher(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if value == nil {
		return nil, false, nil
	}
	t.Set(ctx, key, value)
	return value, true, nil
}

// Set stores a value in both L1 and L2.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte) {
	t.l1.Set(ctx, key, value)
	t.l2.Set(ctx, key, value)
}

// Delete removes a value from both L1 and L2.
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(ctx, key)
	t.l2.Delete(ctx, key)
}

// Close closes all cache connections.
func (t *TieredCache) Close() error {
	var errs []error
	if err := t.l2.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.l1.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("multiple errors: %v", errs)
	}
	return nil
}
