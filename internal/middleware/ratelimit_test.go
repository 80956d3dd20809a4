package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// keyed sets the API key from the X-API-Key header, standing in for auth.
func keyed(c *gin.Context) {
	if key := c.GetHeader("X-API-Key"); key != "" {
		c.Set(ContextKeyAPIKey, key)
	}
	c.Next()
}

func TestRateLimit_AllowsNormalTraffic(t *testing.T) {
	router := guarded(keyed, RateLimit(10, 5)) // 10 req/s, burst of 5

	// First 5 requests should succeed (within burst)
	for i := 0; i < 5; i++ {
		w := serve(router, map[string]string{"X-API-Key": "test-key"})
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimit_RejectsExcessiveTraffic(t *testing.T) {
	router := guarded(keyed, RateLimit(1, 2)) // 1 req/s, burst of 2

	for i := 0; i < 2; i++ {
		serve(router, map[string]string{"X-API-Key": "test-key"})
	}

	w := serve(router, map[string]string{"X-API-Key": "test-key"})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestRateLimit_PerKeyIsolation(t *testing.T) {
	router := guarded(keyed, RateLimit(1, 1)) // Very tight: 1 req/s, burst of 1

	if w := serve(router, map[string]string{"X-API-Key": "key-a"}); w.Code != http.StatusOK {
		t.Errorf("key-a first request: expected 200, got %d", w.Code)
	}
	if w := serve(router, map[string]string{"X-API-Key": "key-a"}); w.Code != http.StatusTooManyRequests {
		t.Errorf("key-a second request: expected 429, got %d", w.Code)
	}
	// Key B should still work (separate bucket)
	if w := serve(router, map[string]string{"X-API-Key": "key-b"}); w.Code != http.StatusOK {
		t.Errorf("key-b first request: expected 200, got %d", w.Code)
	}
}

func TestRateLimit_FallsBackToClientIP(t *testing.T) {
	router := guarded(RateLimit(1, 1))

	req := httptest.NewRequest(http.MethodPost, "/acquire", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/acquire", nil)
	req.RemoteAddr = "10.0.0.1:5678"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same address: expected 429, got %d", w.Code)
	}
}

func TestKeyedLimiter_EvictsIdleBuckets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	buckets := newKeyedLimiter(1, 1, time.Minute, clock)

	for i := 0; i < 100; i++ {
		buckets.allow(fmt.Sprintf("ip:10.0.0.%d", i))
	}
	if got := buckets.size(); got != 100 {
		t.Fatalf("expected 100 buckets, got %d", got)
	}

	// One address stays active; everyone else goes quiet past the TTL.
	now = now.Add(30 * time.Second)
	buckets.allow("ip:10.0.0.1")
	now = now.Add(45 * time.Second)
	buckets.allow("ip:10.0.0.200")

	if got := buckets.size(); got != 2 {
		t.Errorf("expected idle buckets evicted (2 left), got %d", got)
	}
}

func TestKeyedLimiter_EvictionKeepsLimitForActiveKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	buckets := newKeyedLimiter(1, 1, time.Minute, clock)

	if !buckets.allow("key-a") {
		t.Fatal("first request should pass")
	}
	if buckets.allow("key-a") {
		t.Error("second request in the same instant should be limited")
	}
}

func TestKeyedLimiter_TTLCoversRefill(t *testing.T) {
	// burst 10 at 0.01 rps takes 1000s to refill, longer than the 1m TTL.
	buckets := newKeyedLimiter(0.01, 10, time.Minute, time.Now)

	if buckets.ttl != 1000*time.Second {
		t.Errorf("expected ttl raised to refill time, got %v", buckets.ttl)
	}
}
