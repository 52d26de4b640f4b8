// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package cache

import (
	"strings"
	"sync"
	"time"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = time.Minute

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a concurrency-safe TTL map. Expired entries are dropped lazily
// on Get and by a background sweep that stops on Close.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats

	stop     chan struct{}
	stopOnce sync.Once
}

// Stats counts cache activity since creation.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Keys        int
	LastCleanup time.Time
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	c := &Cache[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.record(func(s *Stats) { s.Misses++ })
		var zero V
		return zero, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a Set may have replaced the entry meanwhile.
		if cur, ok := c.entries[key]; ok && !time.Now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.record(func(s *Stats) { s.Misses++; s.Evictions++ })
		var zero V
		return zero, false
	}

	c.record(func(s *Stats) { s.Hits++ })
	return e.value, true
}

// Set stores value under key with the cache's TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		c.record(func(s *Stats) { s.Evictions++ })
	}
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *Cache[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()
	if n > 0 {
		c.record(func(s *Stats) { s.Evictions += int64(n) })
	}
	return n
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry[V])
	c.mu.Unlock()
	c.record(func(s *Stats) { s.Evictions += int64(n) })
}

// Len returns the number of stored entries, expired ones included until
// they are swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the counters.
func (c *Cache[V]) GetStats() Stats {
	keys := c.Len()
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	s := c.stats
	s.Keys = keys
	return s
}

// HitRate returns hits as a percentage of lookups.
func (c *Cache[V]) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Close stops the background sweep. The cache stays usable.
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache[V]) cleanup() {
	now := time.Now()
	c.mu.Lock()
	n := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			n++
		}
	}
	c.mu.Unlock()

	c.record(func(s *Stats) {
		s.Evictions += int64(n)
		s.LastCleanup = now
	})
}

func (c *Cache[V]) record(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}
