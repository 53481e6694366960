package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketConsumesUpToCapacity(t *testing.T) {
	b := NewBucket(Policy{Capacity: 3, RefillAmount: 3, RefillInterval: time.Hour})

	assert.True(t, b.TryConsume(1))
	assert.True(t, b.TryConsume(1))
	assert.True(t, b.TryConsume(1))
	assert.False(t, b.TryConsume(1), "bucket should be empty after consuming capacity")
	assert.False(t, b.TryConsume(1), "denied consume must have no side effect")
}

func TestBucketConsumeMultipleTokens(t *testing.T) {
	b := NewBucket(Policy{Capacity: 5, RefillAmount: 5, RefillInterval: time.Hour})

	assert.True(t, b.TryConsume(3))
	assert.False(t, b.TryConsume(3), "only 2 tokens left")
	assert.True(t, b.TryConsume(2))
	assert.False(t, b.TryConsume(1))
}

func TestBucketRefillsAfterInterval(t *testing.T) {
	b := NewBucket(Policy{Capacity: 2, RefillAmount: 2, RefillInterval: 50 * time.Millisecond})

	require.True(t, b.TryConsume(2))
	require.False(t, b.TryConsume(1))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, b.TryConsume(1), "tokens should be back after a refill tick")
}

func TestBucketRefillCapsAtCapacity(t *testing.T) {
	b := NewBucket(Policy{Capacity: 2, RefillAmount: 2, RefillInterval: 10 * time.Millisecond})

	// Many elapsed intervals must not accumulate beyond capacity.
	time.Sleep(60 * time.Millisecond)
	assert.True(t, b.TryConsume(2))
	assert.False(t, b.TryConsume(1))
}

func TestBucketConcurrentConsumeNeverOverspends(t *testing.T) {
	const capacity = 100
	b := NewBucket(Policy{Capacity: capacity, RefillAmount: capacity, RefillInterval: time.Hour})

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				if b.TryConsume(1) {
					atomic.AddInt64(&granted, 1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(capacity), granted, "exactly capacity tokens may be spent")
	assert.False(t, b.TryConsume(1))
}

func TestBucketAvailable(t *testing.T) {
	b := NewBucket(Policy{Capacity: 10, RefillAmount: 10, RefillInterval: time.Hour})
	assert.Equal(t, 10, b.Available())
	b.TryConsume(4)
	assert.Equal(t, 6, b.Available())
}
