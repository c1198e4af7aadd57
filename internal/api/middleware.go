package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// mutatingEndpoints are rate limited per client IP.
var mutatingEndpoints = map[string]bool{
	"/generate-timeslots": true,
	"/book-appointment":   true,
	"/cancel-appointment": true,
}

// probeEndpoints stay open even when an API key is configured.
var probeEndpoints = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// withRequestID tags every request with an id for log correlation.
func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", requestID)

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request")

		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && !probeEndpoints[r.URL.Path] {
			if r.Header.Get("X-Api-Key") != s.apiKey {
				writeError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && mutatingEndpoints[r.URL.Path] && !s.limiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipRateLimiter keeps a token bucket per client IP.
type ipRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	r       rate.Limit
	burst   int
}

// newIPRateLimiter returns nil when rps is not positive, disabling the limit.
func newIPRateLimiter(rps float64, burst int) *ipRateLimiter {
	if rps <= 0 {
		return nil
	}
	return &ipRateLimiter{
		clients: make(map[string]*limiterEntry),
		r:       rate.Limit(rps),
		burst:   burst,
	}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		rl.evictStaleLocked()
		c = &limiterEntry{lim: rate.NewLimiter(rl.r, rl.burst)}
		rl.clients[ip] = c
	}
	c.seen = time.Now()
	return c.lim.Allow()
}

// evictStaleLocked drops buckets idle for a few minutes; called with the
// lock held before inserting a new client.
func (rl *ipRateLimiter) evictStaleLocked() {
	cutoff := time.Now().Add(-3 * time.Minute)
	for ip, c := range rl.clients {
		if c.seen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
