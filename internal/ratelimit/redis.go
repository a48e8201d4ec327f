package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// checkAndRecordScript runs the whole check-then-increment on the server so
// concurrent replicas cannot both slip past the limit. The key's TTL is the
// window, which makes expiry the window reset.
//
// KEYS[1] attempt key, ARGV[1] max attempts, ARGV[2] window in ms.
var checkAndRecordScript = redis.NewScript(`
local count = tonumber(redis.call("GET", KEYS[1]) or "0")
if count >= tonumber(ARGV[1]) then
  return 0
end
count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// RedisWindowLimiter is an AttemptLimiter shared by every replica through
// Redis. On Redis errors it allows the attempt and logs a warning.
type RedisWindowLimiter struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisWindowLimiter wraps an existing client. Keys are written as
// keyPrefix + clientID.
func NewRedisWindowLimiter(client redis.UniversalClient, keyPrefix string) *RedisWindowLimiter {
	return &RedisWindowLimiter{client: client, keyPrefix: keyPrefix}
}

// DialRedis opens a client and checks it with PING.
func DialRedis(ctx context.Context, addr, password string, db, poolSize int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (l *RedisWindowLimiter) key(clientID string) string {
	return l.keyPrefix + clientID
}

// CheckAndRecord implements AttemptLimiter.
func (l *RedisWindowLimiter) CheckAndRecord(ctx context.Context, clientID string, maxAttempts int, window time.Duration) bool {
	clientID, maxAttempts, window = normalize(clientID, maxAttempts, window)

	allowed, err := checkAndRecordScript.Run(ctx, l.client,
		[]string{l.key(clientID)}, maxAttempts, windowMillis(window)).Int()
	if err != nil {
		slog.Warn("Attempt limiter unavailable, allowing request",
			"client", clientID,
			"error", err,
		)
		return true
	}
	return allowed == 1
}

// windowMillis rounds up so a partial millisecond never shortens the window.
func windowMillis(window time.Duration) int64 {
	return (window + time.Millisecond - 1).Milliseconds()
}

// Clear implements AttemptLimiter.
func (l *RedisWindowLimiter) Clear(ctx context.Context, clientID string) {
	if clientID == "" {
		clientID = unknownClient
	}
	if err := l.client.Del(ctx, l.key(clientID)).Err(); err != nil {
		slog.Warn("Failed to clear attempt record", "client", clientID, "error", err)
	}
}

// Close closes the underlying client.
func (l *RedisWindowLimiter) Close() {
	if err := l.client.Close(); err != nil {
		slog.Warn("Failed to close redis client", "error", err)
	}
}
