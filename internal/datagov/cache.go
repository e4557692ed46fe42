// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

// timeNow is the cache clock. Tests override it to exercise expiry.
var timeNow = time.Now

// DefaultCacheTTL is how long a fetched dataset stays valid.
const DefaultCacheTTL = 15 * time.Minute

// Cache is a process-local TTL cache of fetched datasets, keyed by
// resource id plus normalized filter signature. It is safe for concurrent
// use; two queries racing to populate the same key both succeed and the
// later insert simply overwrites an identical value.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *types.DatasetResult
	expires time.Time
}

// NewCache returns an empty cache. A non-positive ttl selects the default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{ttl: ttl, entries: make(map[string]cacheEntry)}
}

// Get returns the cached result for key if present and unexpired.
func (c *Cache) Get(key string) (*types.DatasetResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if timeNow().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.result, true
}

// Put stores a result under key with the cache's TTL.
func (c *Cache) Put(key string, result *types.DatasetResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, expires: timeNow().Add(c.ttl)}
}

// Len reports the number of live entries, counting expired ones out.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := timeNow()
	for _, e := range c.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}

// CacheKey builds the cache key for a fetch: the resource id joined with
// a normalized filter signature, so that identical filter sets written in
// different order or casing hit the same entry.
func CacheKey(resourceID string, filters map[string]string) string {
	if len(filters) == 0 {
		return resourceID
	}
	parts := make([]string, 0, len(filters))
	for k, v := range filters {
		parts = append(parts, types.NormalizeFieldName(k)+"="+strings.ToLower(strings.TrimSpace(v)))
	}
	sort.Strings(parts)
	return resourceID + "|" + strings.Join(parts, "&")
}
