package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// bucketIdleTTL is how long an unused bucket is kept. By then it has refilled,
// so dropping it and starting a fresh one later changes nothing for the caller.
const bucketIdleTTL = 10 * time.Minute

// RateLimit caps how often each caller may start an acquire call: one token
// bucket per API key, refilled at rps up to burst, 429 when empty. The
// outbound proxy and LLM limiters are separate and shared by all callers.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	buckets := newKeyedLimiter(rps, burst, bucketIdleTTL, time.Now)

	return func(c *gin.Context) {
		key := c.GetString(ContextKeyAPIKey)
		if key == "" {
			// Auth is disabled or didn't run: bucket by client address instead.
			key = "ip:" + c.ClientIP()
		}

		if !buckets.allow(key) {
			abort(c, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		c.Next()
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key and evicts buckets that have
// been idle for ttl, so per-address keys can't grow the map without bound.
//
// sync.Mutex protects the map from concurrent goroutine access. A shared map
// with simple read/write is cleaner with a mutex than a channel.
type keyedLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newKeyedLimiter(rps float64, burst int, ttl time.Duration, now func() time.Time) *keyedLimiter {
	// An evicted bucket must already be full, or eviction would hand out
	// extra tokens.
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return &keyedLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		ttl:       ttl,
		now:       now,
		buckets:   make(map[string]*bucket),
		lastSweep: now(),
	}
}

func (k *keyedLimiter) allow(key string) bool {
	k.mu.Lock()
	now := k.now()
	if now.Sub(k.lastSweep) >= k.ttl {
		k.sweep(now)
	}
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.rps, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	k.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// sweep drops idle buckets. Callers hold k.mu.
func (k *keyedLimiter) sweep(now time.Time) {
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) >= k.ttl {
			delete(k.buckets, key)
		}
	}
	k.lastSweep = now
}

func (k *keyedLimiter) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}
