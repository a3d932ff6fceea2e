package discovery

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injectable for tests.
type Clock func() time.Time

// FeedCache tracks the newest seen published timestamp per discovery key to
// suppress re-delivery of already-seen feed entries. Entries are evicted a
// fixed TTL after creation, regardless of reads. The cache is not the dedup
// authority for storage; losing it only means re-evaluating entries the
// idempotent upsert absorbs.
type FeedCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	seen      time.Time
	createdAt time.Time
}

// NewFeedCache creates a cache with the given TTL. A nil clock defaults to
// time.Now.
func NewFeedCache(ttl time.Duration, clock Clock) *FeedCache {
	if clock == nil {
		clock = time.Now
	}
	return &FeedCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]*cacheEntry),
	}
}

// CacheKey builds the cache key for a discovery source and channel.
func CacheKey(source, channelID string) string {
	return source + "-" + channelID
}

// Get returns the newest seen timestamp for key, or the zero time when the
// key is absent or expired.
func (c *FeedCache) Get(key string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge()

	entry, ok := c.entries[key]
	if !ok {
		return time.Time{}
	}
	return entry.seen
}

// Set records ts for key. The timestamp only moves forward; the entry's TTL
// window is fixed at creation and not renewed.
func (c *FeedCache) Set(key string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge()

	entry, ok := c.entries[key]
	if !ok {
		c.entries[key] = &cacheEntry{seen: ts, createdAt: c.clock()}
		return
	}
	if ts.After(entry.seen) {
		entry.seen = ts
	}
}

// Len returns the number of live entries.
func (c *FeedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purge()
	return len(c.entries)
}

// purge drops expired entries. Caller holds the lock.
func (c *FeedCache) purge() {
	now := c.clock()
	for key, entry := range c.entries {
		if !entry.createdAt.Add(c.ttl).After(now) {
			delete(c.entries, key)
		}
	}
}
