package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/pkg/clientip"
	"golang.org/x/time/rate"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// listing photos under /uploads are embedded by the frontend origin
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (e.g. api.smartaqar.ma).
// allowedHost is the bare hostname. An empty value disables the check.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if allowedHost == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), allowedHost) {
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	globalRateLimitRPS   = 5
	globalRateLimitBurst = 30

	loginRateLimitEvery = 5 * time.Second
	loginRateLimitBurst = 3
)

// Register and login share the stricter budget.
var loginPaths = map[string]bool{
	"/api/v1/login":    true,
	"/api/v1/register": true,
}

// GlobalRateLimit limits each IP to globalRateLimitRPS with a burst of
// globalRateLimitBurst. Returns 429 when exceeded.
func GlobalRateLimit() func(http.Handler) http.Handler {
	limiters := newLimiterSet(rate.Limit(globalRateLimitRPS), globalRateLimitBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(clientip.RealClientIP(r)) {
				tooManyRequests(w, globalRateLimitBurst, "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit applies a stricter per-IP limit to POSTs on the sign-in and
// sign-up routes. Use after GlobalRateLimit.
func LoginRateLimit() func(http.Handler) http.Handler {
	limiters := newLimiterSet(rate.Every(loginRateLimitEvery), loginRateLimitBurst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !loginPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !limiters.allow(clientip.RealClientIP(r)) {
				tooManyRequests(w, loginRateLimitBurst, "Too many login attempts. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductionSecurity returns the production chain:
// SecurityHeaders, HostCheck, GlobalRateLimit, LoginRateLimit.
func ProductionSecurity(allowedHost string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		GlobalRateLimit(),
		LoginRateLimit(),
	}
}
