// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache provides a thread-safe TTL cache shared by the market data
// layer and the advisor tool executor.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// TTLCache is an LRU cache with per-entry expiry.
//
// Description:
//
//	Entries carry their own TTL so callers with different freshness
//	requirements (hourly market data, five minute live rates, thirty
//	minute sessions) can share one instance. Expired entries are removed
//	lazily on access. When the cache is at capacity the least recently
//	used entry is evicted.
//
// Thread Safety: This type is safe for concurrent use.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int

	// now is swapped in tests to control expiry.
	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Stats reports cumulative hit and miss counters.
type Stats struct {
	Hits   int64
	Misses int64
}

// New creates a cache holding at most maxSize entries.
//
// Description:
//
//	Creates a TTL cache with LRU eviction. maxSize values below 1 are
//	clamped to 1.
//
// Inputs:
//
//	maxSize - Maximum number of entries before LRU eviction.
//
// Outputs:
//
//	*TTLCache - Ready-to-use cache.
//
// Thread Safety: The returned cache is safe for concurrent use.
func New(maxSize int) *TTLCache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &TTLCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a value if present and not expired.
//
// Description:
//
//	Looks up the key, removing it lazily if its TTL has elapsed. A hit
//	moves the entry to the front of the LRU list.
//
// Outputs:
//
//	any - The stored value, or nil.
//	bool - True if a live entry was found.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.entries[key]
	if !exists {
		c.misses.Add(1)
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		c.misses.Add(1)
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.hits.Add(1)
	return entry.value, true
}

// Set stores a value with the given TTL, evicting LRU if at capacity.
//
// Description:
//
//	Overwrites any existing entry under the same key, resetting its
//	expiry. TTL values of zero or less store an already-expired entry,
//	which the next Get removes.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(ttl)

	if elem, exists := c.entries[key]; exists {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.lru.MoveToFront(elem)
		return
	}

	if c.lru.Len() >= c.maxSize {
		if back := c.lru.Back(); back != nil {
			c.removeElement(back)
		}
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = elem
}

// Delete removes a key if present.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.entries[key]; exists {
		c.removeElement(elem)
	}
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns cumulative hit and miss counters.
func (c *TTLCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// removeElement must be called with c.mu held.
func (c *TTLCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.entries, entry.key)
	c.lru.Remove(elem)
}
