// Package ratelimit bounds how often a client may hit the site.
//
// Two families of limiter live here. AttemptLimiter implementations count
// sensitive operations (login attempts, contact submissions) per client inside
// a fixed window and are consulted explicitly by handlers. Limiter
// implementations are token buckets applied to every API request by
// Middleware, with a separate tier for admin sessions.
package ratelimit

import (
	"context"
	"time"
)

// Defaults applied when a caller passes a non-positive limit or window.
const (
	DefaultWindow        = 15 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
	unknownClient        = "unknown"
)

// AttemptLimiter counts attempts per client identifier inside a window.
// Implementations must be safe for concurrent use and must perform the check
// and the increment as one atomic step.
type AttemptLimiter interface {
	// CheckAndRecord reports whether another attempt by clientID is allowed
	// and, if so, records it. A denied attempt is not counted.
	CheckAndRecord(ctx context.Context, clientID string, maxAttempts int, window time.Duration) bool

	// Clear forgets every attempt recorded for clientID.
	Clear(ctx context.Context, clientID string)

	// Close stops background work and releases resources.
	Close()
}

// Limiter defines the request throttling contract. Implementations must be
// safe for concurrent use.
type Limiter interface {
	// Allow checks whether a request identified by key should be allowed.
	// Returns whether the request is allowed and rate information for
	// populating response headers.
	Allow(key string) (allowed bool, info Info)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum requests per window
	Remaining  int           // Approximate tokens remaining
	ResetAt    time.Time     // When the bucket will be full again
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}

// normalize maps out-of-contract inputs onto safe values instead of failing.
func normalize(clientID string, maxAttempts int, window time.Duration) (string, int, time.Duration) {
	if clientID == "" {
		clientID = unknownClient
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return clientID, maxAttempts, window
}
