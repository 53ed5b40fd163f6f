package authz

import (
	"sync"
	"time"
)

// DefaultPermissionTTL bounds how long a revoked permission can remain
// visible through the cache.
const DefaultPermissionTTL = 30 * time.Second

// CacheObserver receives cache events, typically for metrics.
type CacheObserver interface {
	PermissionCacheHit()
	PermissionCacheMiss()
	PermissionCacheInvalidated()
}

// CacheOption customises a PermissionCache.
type CacheOption func(*PermissionCache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *PermissionCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithObserver attaches an observer notified of hits, misses and invalidations.
func WithObserver(o CacheObserver) CacheOption {
	return func(c *PermissionCache) {
		c.observer = o
	}
}

type cacheEntry struct {
	record    PermissionRecord
	expiresAt time.Time
}

// PermissionCache is a process-local map from user id to permission record
// with per-entry expiry. Expired entries are treated as absent at read time
// and stay in the map until overwritten or invalidated.
//
// There is no cross-process invalidation: other instances observe a change
// only once their own entry expires.
type PermissionCache struct {
	ttl      time.Duration
	now      func() time.Time
	observer CacheObserver

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewPermissionCache creates an empty cache. A non-positive ttl selects
// DefaultPermissionTTL.
func NewPermissionCache(ttl time.Duration, opts ...CacheOption) *PermissionCache {
	if ttl <= 0 {
		ttl = DefaultPermissionTTL
	}
	c := &PermissionCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the default entry lifetime.
func (c *PermissionCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached record while it is still fresh.
func (c *PermissionCache) Get(userID string) (PermissionRecord, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		c.notify(func(o CacheObserver) { o.PermissionCacheMiss() })
		return PermissionRecord{}, false
	}
	c.notify(func(o CacheObserver) { o.PermissionCacheHit() })
	return entry.record, true
}

// Put stores record for the cache TTL.
func (c *PermissionCache) Put(userID string, record PermissionRecord) {
	c.PutTTL(userID, record, c.ttl)
}

// PutTTL stores record, overwriting any existing entry, until now+ttl.
func (c *PermissionCache) PutTTL(userID string, record PermissionRecord, ttl time.Duration) {
	entry := cacheEntry{record: record, expiresAt: c.now().Add(ttl)}
	c.mu.Lock()
	c.entries[userID] = entry
	c.mu.Unlock()
}

// Invalidate drops the entry for userID regardless of expiry. It is safe
// to call for unknown ids and to call repeatedly.
func (c *PermissionCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	c.notify(func(o CacheObserver) { o.PermissionCacheInvalidated() })
}

// Len counts stored entries, stale ones included.
func (c *PermissionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *PermissionCache) notify(fn func(CacheObserver)) {
	if c.observer != nil {
		fn(c.observer)
	}
}
