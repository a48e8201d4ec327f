package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"caucus/internal/auth"
	"caucus/internal/models"
)

// Middleware throttles every request. Requests carrying admin session claims
// in their context (see auth.NewContext) draw from the authenticated limiter
// keyed by session; everything else draws from the anonymous limiter keyed by
// client IP as resolved through proxies.
func Middleware(anonymous Limiter, authenticated Limiter, proxies *TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limiter := resolveKeyAndLimiter(r, anonymous, authenticated, proxies)

			allowed, info := limiter.Allow(key)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfter := int(info.RetryAfter.Seconds()) + 1
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				resp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				if err := json.NewEncoder(w).Encode(resp); err != nil {
					slog.Error("Failed to encode rate limit response", "error", err)
				}

				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", info.Limit,
					"retry_after", retryAfter,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func resolveKeyAndLimiter(r *http.Request, anonymous Limiter, authenticated Limiter, proxies *TrustedProxies) (string, Limiter) {
	if claims, ok := auth.FromContext(r.Context()); ok && claims.Authenticated {
		return "session:" + strconv.FormatInt(claims.IssuedAtMillis, 10), authenticated
	}
	return proxies.ClientIP(r), anonymous
}
