// Package middleware holds HTTP middleware shared by the upload routes.
package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/goldmafia/clubhouse/internal/auth"
)

// KeyFunc names the bucket a request draws from
type KeyFunc func(r *http.Request) string

// MemberOrIP keys authenticated requests by member and the rest by client address
func MemberOrIP(r *http.Request) string {
	if userID, ok := auth.GetUserID(r.Context()); ok {
		return "member:" + userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles pinning requests. Every pin costs quota on the
// gateway account, so one caller must not be able to drain it.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	key     KeyFunc
	now     func() time.Time
}

// Option configures a RateLimiter
type Option func(*RateLimiter)

// WithKeyFunc replaces MemberOrIP
func WithKeyFunc(fn KeyFunc) Option {
	return func(rl *RateLimiter) { rl.key = fn }
}

// NewRateLimiter allows requestsPerMin per key with a burst of a tenth of that, at least 5
func NewRateLimiter(requestsPerMin int, opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(requestsPerMin) / 60),
		burst:   max(requestsPerMin/10, 5),
		key:     MemberOrIP,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// reserve takes a token for key and returns how long the caller must wait
// when none is available. A refused request consumes nothing.
func (rl *RateLimiter) reserve(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.CancelAt(now)
	}
	return delay
}

// Middleware answers 429 with Retry-After once a key's bucket is empty
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay := rl.reserve(rl.key(r))
		if delay <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(delay)))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "too many uploads, try again later",
			"kind":  "rate_limited",
		})
	})
}

func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Cleanup forgets keys not seen for idle. A bucket refills completely well
// within the idle windows used in practice, so nothing is lost.
func (rl *RateLimiter) Cleanup(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// RunCleanup calls Cleanup(interval) every interval until ctx is done
func (rl *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(interval)
		}
	}
}
