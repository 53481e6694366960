package ratelimit

import (
	"sync"
	"time"
)

// Policy describes a token bucket: Capacity tokens, with RefillAmount
// tokens added back every RefillInterval (never exceeding Capacity).
type Policy struct {
	Capacity       int
	RefillAmount   int
	RefillInterval time.Duration
}

// Bucket is a token bucket shared by concurrent callers. Tokens are
// computed lazily from elapsed time on each consume, so no background
// goroutine is needed per bucket.
type Bucket struct {
	mu         sync.Mutex
	policy     Policy
	tokens     float64
	lastRefill time.Time
	lastUsed   time.Time
}

// NewBucket returns a full bucket for the given policy.
func NewBucket(policy Policy) *Bucket {
	now := time.Now()
	return &Bucket{
		policy:     policy,
		tokens:     float64(policy.Capacity),
		lastRefill: now,
		lastUsed:   now,
	}
}

// TryConsume atomically takes n tokens if available and returns true.
// It never blocks: when fewer than n tokens are available it returns
// false without side effects.
func (b *Bucket) TryConsume(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refill(now)
	b.lastUsed = now

	if b.tokens < float64(n) {
		return false
	}
	b.tokens -= float64(n)
	return true
}

// Available returns the current token count, for logging.
func (b *Bucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(time.Now())
	return int(b.tokens)
}

// LastUsed returns the time of the most recent consume attempt.
func (b *Bucket) LastUsed() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed
}

// refill credits whole elapsed refill intervals since lastRefill,
// capped at capacity. Caller must hold b.mu.
func (b *Bucket) refill(now time.Time) {
	if b.policy.RefillInterval <= 0 {
		return
	}
	elapsed := now.Sub(b.lastRefill)
	ticks := int64(elapsed / b.policy.RefillInterval)
	if ticks <= 0 {
		return
	}
	b.tokens += float64(ticks) * float64(b.policy.RefillAmount)
	if b.tokens > float64(b.policy.Capacity) {
		b.tokens = float64(b.policy.Capacity)
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(ticks) * b.policy.RefillInterval)
}
