package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{Capacity: 5, RefillAmount: 5, RefillInterval: time.Hour}

func TestRegistryResolveReturnsSameBucket(t *testing.T) {
	r := NewRegistry()

	a := r.Resolve("user:1", testPolicy)
	b := r.Resolve("user:1", testPolicy)
	assert.Same(t, a, b)

	c := r.Resolve("user:2", testPolicy)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConcurrentFirstAccessCreatesOneBucket(t *testing.T) {
	r := NewRegistry()

	const goroutines = 32
	buckets := make([]*Bucket, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buckets[i] = r.Resolve("ip:10.0.0.1", testPolicy)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, r.Len())
	for i := 1; i < goroutines; i++ {
		assert.Same(t, buckets[0], buckets[i], "all callers must see the winner's bucket")
	}
}

func TestRegistrySharedConsumption(t *testing.T) {
	r := NewRegistry()
	policy := Policy{Capacity: 2, RefillAmount: 2, RefillInterval: time.Hour}

	require.True(t, r.Resolve("user:7", policy).TryConsume(1))
	require.True(t, r.Resolve("user:7", policy).TryConsume(1))
	assert.False(t, r.Resolve("user:7", policy).TryConsume(1), "consumption must be shared across Resolve calls")
}

func TestRegistryEvictIdle(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Resolve(fmt.Sprintf("ip:10.0.0.%d", i), testPolicy)
	}
	require.Equal(t, 5, r.Len())

	// Everything was just used; nothing is idle yet.
	assert.Equal(t, 0, r.EvictIdle(time.Now().Add(-time.Minute)))

	// A future cutoff makes every bucket idle.
	assert.Equal(t, 5, r.EvictIdle(time.Now().Add(time.Minute)))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryEvictedKeyIsRecreated(t *testing.T) {
	r := NewRegistry()
	b := r.Resolve("user:9", testPolicy)
	b.TryConsume(5)

	r.EvictIdle(time.Now().Add(time.Minute))

	fresh := r.Resolve("user:9", testPolicy)
	assert.NotSame(t, b, fresh)
	assert.True(t, fresh.TryConsume(1), "recreated bucket starts full")
}
