package history

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/race-odds/internal/metrics"
	"github.com/yourusername/race-odds/internal/models"
)

// CachedStore memoizes successful lookups of an underlying Store by normalized
// name. Errors are never cached.
type CachedStore struct {
	store     Store
	cache     *cache.Cache
	ttl       time.Duration
	maxSize   int
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCachedStore wraps store with a TTL cache holding at most maxSize names.
func NewCachedStore(store Store, ttl time.Duration, maxSize int) *CachedStore {
	return &CachedStore{
		store:   store,
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Query implements Store.
func (c *CachedStore) Query(ctx context.Context, name string) ([]models.HistoricalRecord, error) {
	key := NormalizeName(name)

	if cached, found := c.cache.Get(key); found {
		if records, ok := cached.([]models.HistoricalRecord); ok {
			c.record(true)
			return append([]models.HistoricalRecord(nil), records...), nil
		}
	}
	c.record(false)

	records, err := c.store.Query(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.maxSize > 0 && c.cache.ItemCount() >= c.maxSize {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= c.maxSize {
			c.cache.Flush()
		}
	}
	c.cache.Set(key, append([]models.HistoricalRecord(nil), records...), c.ttl)
	c.mu.Unlock()

	return records, nil
}

func (c *CachedStore) record(hit bool) {
	c.mu.Lock()
	if hit {
		c.hitCount++
	} else {
		c.missCount++
	}
	c.mu.Unlock()

	_, _, ratio := c.Stats()
	metrics.UpdateHistoryCacheHitRatio(ratio)
}

// Flush empties the cache and resets the statistics.
func (c *CachedStore) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.hitCount = 0
	c.missCount = 0
}

// Stats returns cache statistics
func (c *CachedStore) Stats() (hits, misses uint64, ratio float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits = c.hitCount
	misses = c.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached names.
func (c *CachedStore) ItemCount() int {
	return c.cache.ItemCount()
}
