package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/proptable/internal/model"
)

// MemoryCache implements in-memory suggestion caching with expiry
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a new memory cache
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves suggestions from the cache. The returned slice is a copy.
func (c *MemoryCache) Get(key string) ([]model.Suggestion, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	suggestions, ok := val.([]model.Suggestion)
	if !ok {
		return nil, false
	}
	return append([]model.Suggestion(nil), suggestions...), true
}

// Set stores suggestions with the default TTL
func (c *MemoryCache) Set(key string, suggestions []model.Suggestion) {
	c.cache.SetDefault(key, append([]model.Suggestion(nil), suggestions...))
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() {
	c.cache.Flush()
}

// Len reports the number of cached entries, expired ones included
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}
