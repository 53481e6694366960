package ratelimit

import (
	"log"
	"sync"
	"time"
)

// Registry holds one bucket per key (user id or client IP), created
// lazily on first use. All callers for the same key share one bucket.
type Registry struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

func NewRegistry() *Registry {
	return &Registry{buckets: make(map[string]*Bucket)}
}

// Resolve returns the bucket for key, creating one from policy if it
// does not exist yet. Concurrent first access for the same key yields
// a single bucket; losers see the winner's instance.
func (r *Registry) Resolve(key string, policy Policy) *Bucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buckets[key]; ok {
		return b
	}
	b := NewBucket(policy)
	r.buckets[key] = b
	return b
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buckets)
}

// EvictIdle drops buckets that have not been consulted since the given
// cutoff and returns how many were removed. Evicting an in-use key is
// harmless: the next request recreates a full bucket.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for key, b := range r.buckets {
		if b.LastUsed().Before(cutoff) {
			delete(r.buckets, key)
			evicted++
		}
	}
	return evicted
}

// StartEvictionWorker launches a background goroutine that periodically
// evicts buckets idle for longer than maxIdle. Without this the per-caller
// map grows with every distinct user id and IP for the process lifetime.
func (r *Registry) StartEvictionWorker(interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if n := r.EvictIdle(time.Now().Add(-maxIdle)); n > 0 {
				log.Printf("rate limit registry: evicted %d idle buckets (%d remain)", n, r.Len())
			}
		}
	}()
}
