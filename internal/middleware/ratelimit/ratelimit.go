// Package ratelimit provides per-client token bucket rate limiting with a
// separate, tighter budget for requests that pin files or send transactions.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pendergraft/skillcert/internal/middleware/realip"
)

// Class separates cheap lookups from costly submissions.
type Class int

const (
	Read Class = iota
	Write
)

// Config holds the configuration for rate limiting
type Config struct {
	Enabled bool
	// RequestsPerMin is the read budget per client
	RequestsPerMin int
	// WriteRequestsPerMin is the submission budget per client
	WriteRequestsPerMin int
	// BurstSize is the read burst; writes burst at most a quarter of it
	BurstSize int
	// CleanupMinutes is how long an idle client is remembered
	CleanupMinutes int
	// Classify decides the class of a request. Defaults to DefaultClassify.
	Classify func(*http.Request) Class
	// Exempt paths bypass limiting entirely.
	Exempt []string
}

// DefaultClassify treats every non-GET request as a write.
func DefaultClassify(r *http.Request) Class {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return Read
	}
	return Write
}

type bucketKey struct {
	client string
	class  Class
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-client limiters
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[bucketKey]*entry
	limits  [2]rate.Limit
	bursts  [2]int
	ttl     time.Duration
	cfg     Config
	exempt  map[string]bool
	stopCh  chan struct{}
	stopped sync.Once
}

// New creates a new RateLimiter and starts its cleanup loop.
func New(cfg Config) *RateLimiter {
	if cfg.Classify == nil {
		cfg.Classify = DefaultClassify
	}
	ttl := time.Duration(cfg.CleanupMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	writeBurst := max(cfg.BurstSize/4, 1)
	writeRPM := cfg.WriteRequestsPerMin
	if writeRPM <= 0 {
		writeRPM = cfg.RequestsPerMin
	}

	rl := &RateLimiter{
		buckets: make(map[bucketKey]*entry),
		limits:  [2]rate.Limit{perMinute(cfg.RequestsPerMin), perMinute(writeRPM)},
		bursts:  [2]int{cfg.BurstSize, writeBurst},
		ttl:     ttl,
		cfg:     cfg,
		exempt:  make(map[string]bool, len(cfg.Exempt)),
		stopCh:  make(chan struct{}),
	}
	for _, p := range cfg.Exempt {
		rl.exempt[p] = true
	}

	go rl.cleanupLoop()
	return rl
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(time.Now().Add(-rl.ttl))
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, e := range rl.buckets {
		if e.lastSeen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
}

// Allow reports whether the client may make another request of the class.
func (rl *RateLimiter) Allow(client string, class Class) bool {
	rl.mu.Lock()
	key := bucketKey{client: client, class: class}
	e, ok := rl.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limits[class], rl.bursts[class])}
		rl.buckets[key] = e
	}
	e.lastSeen = time.Now()
	rl.mu.Unlock()

	return e.limiter.Allow()
}

// Len returns the number of tracked buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Middleware returns the HTTP middleware for this limiter.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			class := rl.cfg.Classify(r)
			if !rl.Allow(realip.GetClientIP(r), class) {
				retry := 60 / max(rl.cfg.RequestsPerMin, 1)
				if class == Write {
					retry = 60
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    "RATE_LIMIT_EXCEEDED",
						"message": "Too many requests. Please try again later.",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Middleware returns a rate limiting middleware, or a pass-through when
// limiting is disabled. The limiter lives for the rest of the process.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return New(cfg).Middleware()
}
