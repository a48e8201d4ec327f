package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type attemptRecord struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

// WindowLimiter is the in-process AttemptLimiter. State lives in a
// mutex-guarded map and is lost on restart.
type WindowLimiter struct {
	now           func() time.Time
	sweepInterval time.Duration

	mu      sync.Mutex
	records map[string]*attemptRecord
	done    chan struct{}
	closed  bool
}

// WindowOption configures a WindowLimiter.
type WindowOption func(*WindowLimiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) WindowOption {
	return func(l *WindowLimiter) {
		l.now = now
	}
}

// NewWindowLimiter starts a limiter whose sweeper runs every sweepInterval.
// A non-positive interval falls back to DefaultSweepInterval.
func NewWindowLimiter(sweepInterval time.Duration, opts ...WindowOption) *WindowLimiter {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	l := &WindowLimiter{
		now:           time.Now,
		sweepInterval: sweepInterval,
		records:       make(map[string]*attemptRecord),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.sweepLoop()
	return l
}

// CheckAndRecord implements AttemptLimiter.
func (l *WindowLimiter) CheckAndRecord(_ context.Context, clientID string, maxAttempts int, window time.Duration) bool {
	clientID, maxAttempts, window = normalize(clientID, maxAttempts, window)

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[clientID]
	if !ok || now.Sub(rec.windowStart) >= window {
		l.records[clientID] = &attemptRecord{count: 1, windowStart: now, window: window}
		return true
	}
	if rec.count >= maxAttempts {
		return false
	}
	rec.count++
	return true
}

// Clear implements AttemptLimiter.
func (l *WindowLimiter) Clear(_ context.Context, clientID string) {
	if clientID == "" {
		clientID = unknownClient
	}
	l.mu.Lock()
	delete(l.records, clientID)
	l.mu.Unlock()
}

// Len returns the number of tracked clients.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Close stops the sweeper. Safe to call more than once.
func (l *WindowLimiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
}

func (l *WindowLimiter) sweepLoop() {
	ticker := time.NewTicker(l.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			if n := l.sweep(); n > 0 {
				slog.Debug("Swept expired attempt records", "removed", n)
			}
		}
	}
}

// sweep drops records whose window has fully elapsed and returns how many it
// removed.
func (l *WindowLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, rec := range l.records {
		if now.Sub(rec.windowStart) > rec.window {
			delete(l.records, id)
			removed++
		}
	}
	return removed
}
