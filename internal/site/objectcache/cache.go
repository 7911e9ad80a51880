// Package objectcache is the site's in-process object cache.
//
// Lookups are counted: every Get is either a hit or a miss, and both counters
// only ever grow, so callers can measure cache effectiveness over a span by
// diffing two readings.
package objectcache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 1024

// Cache is an LRU object cache keyed by group and key.
type Cache struct {
	entries *lru.Cache
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache holding up to size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create object cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

func cacheKey(group, key string) string {
	return group + ":" + key
}

// Get looks a value up and counts the hit or miss.
func (c *Cache) Get(group, key string) (any, bool) {
	v, ok := c.entries.Get(cacheKey(group, key))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores a value.
func (c *Cache) Set(group, key string, value any) {
	c.entries.Add(cacheKey(group, key), value)
}

// Delete removes a value.
func (c *Cache) Delete(group, key string) {
	c.entries.Remove(cacheKey(group, key))
}

// Flush drops every entry. Counters are kept.
func (c *Cache) Flush() {
	c.entries.Purge()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Hits returns the number of lookups that found a value.
func (c *Cache) Hits() int64 {
	if c == nil {
		return 0
	}
	return c.hits.Load()
}

// Misses returns the number of lookups that found nothing.
func (c *Cache) Misses() int64 {
	if c == nil {
		return 0
	}
	return c.misses.Load()
}
