// Package cache implements the tiered response cache consulted before
// any external flight-data call: a process-local map in front of a
// persisted store, with expiry checked at read time. Stale entries are
// kept and returned (Fresh=false) so callers can fall back on them when
// the external API cannot be reached.
package cache

import (
	"sync"
	"time"
)

// Entry is one cached external response, keyed by a hash of the query
// that produced it.
type Entry struct {
	Key       string
	Payload   string
	ExpiresAt time.Time
}

// Store is the persisted tier. FindByKey returns (nil, nil) when no
// entry exists; Save upserts by key.
type Store interface {
	FindByKey(key string) (*Entry, error)
	Save(entry *Entry) error
}

// Lookup is the result of a Get. A stale hit has Hit=true, Fresh=false
// and still carries the payload.
type Lookup struct {
	Hit     bool
	Fresh   bool
	Payload string
}

// ResponseCache layers an in-memory map over a Store. Both tiers are
// written on Put; reads prefer memory and refill it from the store.
// Consistency between tiers is best effort: a race between two puts for
// the same key resolves as last write wins.
type ResponseCache struct {
	store Store
	ttl   time.Duration

	mu     sync.RWMutex
	memory map[string]Entry
}

// New creates a cache over store with a fixed TTL applied to every Put.
func New(store Store, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store:  store,
		ttl:    ttl,
		memory: make(map[string]Entry),
	}
}

// Get looks up key in memory first, then the persisted store. Store
// errors are reported as misses to the freshness logic upstream; the
// pipeline treats them the same as absent data.
func (c *ResponseCache) Get(key string) (Lookup, error) {
	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()

	if !ok {
		stored, err := c.store.FindByKey(key)
		if err != nil {
			return Lookup{}, err
		}
		if stored == nil {
			return Lookup{}, nil
		}
		entry = *stored
		c.mu.Lock()
		c.memory[key] = entry
		c.mu.Unlock()
	}

	return Lookup{
		Hit:     true,
		Fresh:   time.Now().Before(entry.ExpiresAt),
		Payload: entry.Payload,
	}, nil
}

// Put upserts key with the cache's TTL. The memory tier is updated even
// if the persisted write fails, so the current process still benefits.
func (c *ResponseCache) Put(key, payload string) error {
	entry := Entry{
		Key:       key,
		Payload:   payload,
		ExpiresAt: time.Now().Add(c.ttl),
	}

	c.mu.Lock()
	c.memory[key] = entry
	c.mu.Unlock()

	return c.store.Save(&entry)
}

// TTL returns the fixed per-cache TTL.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}
