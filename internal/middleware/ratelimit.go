package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	RateLimitWindow      = 120 * time.Second
	RateLimitMaxRequests = 300
	RateLimitKeyPrefix   = "smartaqar:ratelimit:"
	BlockedIPKeyPrefix   = "smartaqar:blocked_ip:"
	BlockedIPDuration    = 15 * time.Minute
)

// RateLimit counts requests per IP in a fixed Redis window. An IP that goes
// over RateLimitMaxRequests is blocked for BlockedIPDuration. Redis failures
// let the request through.
func RateLimit(client *redis.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientip.RealClientIP(r)
			blockedKey := BlockedIPKeyPrefix + ip

			blocked, err := client.Exists(ctx, blockedKey).Result()
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("rate limit check skipped")
				next.ServeHTTP(w, r)
				return
			}
			if blocked > 0 {
				tooManyRequests(w, RateLimitMaxRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
				return
			}

			key := RateLimitKeyPrefix + ip
			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("rate limit count skipped")
				next.ServeHTTP(w, r)
				return
			}
			// the window starts at the first request and is never extended
			if n == 1 {
				client.Expire(ctx, key, RateLimitWindow)
			}

			count := int(n)
			if count > RateLimitMaxRequests {
				if err := client.Set(ctx, blockedKey, "1", BlockedIPDuration).Err(); err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("ip", ip).Msg("failed to block ip")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(BlockedIPDuration.Seconds())))
				tooManyRequests(w, RateLimitMaxRequests, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(RateLimitMaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(RateLimitMaxRequests-count))
			next.ServeHTTP(w, r)
		})
	}
}
