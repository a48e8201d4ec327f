package ratelimit

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// requestBucket is one client's (or one admin session's) token bucket.
type requestBucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is the in-process request throttle behind Middleware. Each
// key refills at a steady per-minute rate up to its burst. Buckets untouched
// for two sweep intervals are dropped.
type MemoryLimiter struct {
	refill        rate.Limit
	burst         int
	perMinute     int
	sweepInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	buckets map[string]*requestBucket
	done    chan struct{}
	closed  bool
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithMemoryClock replaces time.Now.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		m.now = now
	}
}

// NewMemoryLimiter allows requestsPerMinute per key with bursts of up to
// burst. Non-positive rates and bursts become 1; a non-positive interval
// falls back to DefaultSweepInterval.
func NewMemoryLimiter(requestsPerMinute int, burst int, sweepInterval time.Duration, opts ...MemoryOption) *MemoryLimiter {
	requestsPerMinute = max(requestsPerMinute, 1)
	burst = max(burst, 1)
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	m := &MemoryLimiter{
		refill:        rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:         burst,
		perMinute:     requestsPerMinute,
		sweepInterval: sweepInterval,
		now:           time.Now,
		buckets:       make(map[string]*requestBucket),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.sweepLoop()
	return m
}

// Allow implements Limiter.
func (m *MemoryLimiter) Allow(key string) (bool, Info) {
	now := m.now()

	m.mu.Lock()
	b, ok := m.buckets[key]
	if !ok {
		b = &requestBucket{tokens: rate.NewLimiter(m.refill, m.burst)}
		m.buckets[key] = b
	}
	b.lastSeen = now
	m.mu.Unlock()

	allowed := b.tokens.AllowN(now, 1)
	return allowed, m.info(b.tokens.TokensAt(now), now, allowed)
}

// info derives the X-RateLimit-* values from the tokens left after a call.
func (m *MemoryLimiter) info(left float64, now time.Time, allowed bool) Info {
	info := Info{
		Limit:     m.perMinute,
		Remaining: int(math.Max(0, math.Floor(left))),
		ResetAt:   now.Add(m.refillTime(float64(m.burst) - left)),
	}
	if !allowed {
		info.RetryAfter = m.refillTime(1 - left)
	}
	return info
}

func (m *MemoryLimiter) refillTime(tokens float64) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(m.refill) * float64(time.Second))
}

// Len returns the number of live buckets.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

// Close stops the sweeper. Safe to call more than once.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

func (m *MemoryLimiter) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				slog.Debug("Swept idle request buckets", "removed", n)
			}
		}
	}
}

// sweep drops buckets idle for more than two intervals and returns how many
// it removed.
func (m *MemoryLimiter) sweep() int {
	cutoff := m.now().Add(-2 * m.sweepInterval)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}
