package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_Allow_UnderLimit(t *testing.T) {
	limiter := NewMemoryLimiter(60, 10, 5*time.Minute)
	defer limiter.Close()

	allowed, info := limiter.Allow("192.168.1.1")
	assert.True(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.True(t, info.Remaining >= 0 && info.Remaining <= 10)
	assert.False(t, info.ResetAt.IsZero())
}

func TestMemoryLimiter_Allow_ExceedsBurst(t *testing.T) {
	limiter := NewMemoryLimiter(60, 3, 5*time.Minute)
	defer limiter.Close()

	key := "192.168.1.1"
	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow(key)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, info := limiter.Allow(key)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.True(t, info.RetryAfter > 0)
	assert.True(t, info.RetryAfter <= time.Second)
}

func TestMemoryLimiter_Allow_DifferentKeys(t *testing.T) {
	limiter := NewMemoryLimiter(60, 2, 5*time.Minute)
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		limiter.Allow("key1")
	}
	allowed1, _ := limiter.Allow("key1")
	assert.False(t, allowed1, "key1 should be denied")

	allowed2, _ := limiter.Allow("key2")
	assert.True(t, allowed2, "key2 should be allowed")
}

func TestMemoryLimiter_ClampsInvalidSettings(t *testing.T) {
	limiter := NewMemoryLimiter(0, 0, 0)
	defer limiter.Close()

	allowed, info := limiter.Allow("k")
	assert.True(t, allowed)
	assert.Equal(t, 1, info.Limit)

	allowed, _ = limiter.Allow("k")
	assert.False(t, allowed)
}

func TestMemoryLimiter_ConcurrentAccess(t *testing.T) {
	limiter := NewMemoryLimiter(1000, 100, 5*time.Minute)
	defer limiter.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("client-%d", id%5)
			for j := 0; j < 20; j++ {
				limiter.Allow(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryLimiter_Close(t *testing.T) {
	limiter := NewMemoryLimiter(60, 10, 100*time.Millisecond)
	limiter.Close()
	limiter.Close()
}

func TestMemoryLimiter_RefillsAtConfiguredRate(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryLimiter(60, 2, time.Hour, WithMemoryClock(clock.Now))
	defer limiter.Close()

	for i := 0; i < 2; i++ {
		allowed, _ := limiter.Allow("203.0.113.1")
		require.True(t, allowed)
	}
	allowed, info := limiter.Allow("203.0.113.1")
	require.False(t, allowed)
	assert.Equal(t, time.Second, info.RetryAfter)
	assert.Equal(t, clock.Now().Add(2*time.Second), info.ResetAt)

	clock.Advance(time.Second)
	allowed, info = limiter.Allow("203.0.113.1")
	assert.True(t, allowed, "one token is back after one second at 60/min")
	assert.Equal(t, 0, info.Remaining)
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	clock := newTestClock()
	limiter := NewMemoryLimiter(60, 10, time.Minute, WithMemoryClock(clock.Now))
	defer limiter.Close()

	limiter.Allow("ephemeral-key")
	limiter.Allow("busy-key")
	require.Equal(t, 2, limiter.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 0, limiter.sweep(), "bucket idle for less than two intervals is kept")

	clock.Advance(90 * time.Second)
	limiter.Allow("busy-key")
	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, limiter.sweep())
	assert.Equal(t, 1, limiter.Len())
}
