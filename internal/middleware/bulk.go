package middleware

import (
	"net/http"
	"strconv"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/clientip"
	"golang.org/x/time/rate"
)

// Imports and campaign runs are expensive, so each user gets a small budget:
// 10 per minute, burst 5.
const (
	bulkRatePerMinute = 10
	bulkBurst         = 5
)

// BulkRateLimit limits heavy endpoints per authenticated user, falling back
// to the client IP. Mount it after RequireAuth.
func BulkRateLimit() func(http.Handler) http.Handler {
	limiters := newLimiterSet(rate.Limit(float64(bulkRatePerMinute)/60), bulkBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientip.RealClientIP(r)
			if user := CurrentUser(r.Context()); user != nil {
				key = "user:" + user.ID.Hex()
			}

			if !limiters.allow(key) {
				tooManyRequests(w, bulkBurst, "Too many bulk operations. Please wait a minute and try again.")
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(bulkBurst))
			next.ServeHTTP(w, r)
		})
	}
}
