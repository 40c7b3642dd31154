package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// limiterSet hands out one token bucket per key and forgets keys idle for
// longer than limiterTTL.
type limiterSet struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	entries  map[string]*limiterEntry
	janitor  sync.Once
	interval time.Duration
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:    limit,
		burst:    burst,
		entries:  make(map[string]*limiterEntry),
		interval: limiterCleanupInterval,
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.janitor.Do(func() { go s.cleanupLoop() })

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

func (s *limiterSet) allow(key string) bool {
	return s.get(key).Allow()
}

func (s *limiterSet) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for now := range ticker.C {
		s.sweep(now)
	}
}

func (s *limiterSet) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if now.Sub(e.lastUse) > limiterTTL {
			delete(s.entries, key)
		}
	}
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func tooManyRequests(w http.ResponseWriter, limit int, message string) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", "0")
	writeJSONError(w, http.StatusTooManyRequests, message)
}
