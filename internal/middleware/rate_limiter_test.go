package middleware

import (
	"testing"
	"time"

	"github.com/feedwall/backend/internal/config"
)

func newTestLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	return NewIPRateLimiter(cfg).(*ipRateLimiter)
}

func TestAllowWithinBurst(t *testing.T) {
	limiter := newTestLimiter(config.RateLimitConfig{
		Requests: 1,
		Window:   time.Hour,
		Burst:    3,
	})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(config.RateLimitConfig{
		Requests: 1,
		Window:   time.Hour,
		Burst:    1,
	})

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first key should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("first key should be exhausted")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("second key must not share the first key's budget")
	}
}

func TestIdleVisitorsExpire(t *testing.T) {
	limiter := newTestLimiter(config.RateLimitConfig{
		Requests: 1,
		Window:   time.Hour,
		Burst:    1,
		TTL:      time.Minute,
	})

	current := time.Now()
	limiter.now = func() time.Time { return current }

	limiter.Allow("10.0.0.1")
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected one tracked visitor, got %d", len(limiter.visitors))
	}

	current = current.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	if _, ok := limiter.visitors["10.0.0.1"]; ok {
		t.Fatal("expected idle visitor to be evicted")
	}
}

func TestConfigFallbacks(t *testing.T) {
	// Zero values must not produce a panicking limiter.
	limiter := newTestLimiter(config.RateLimitConfig{})
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request should always fit the minimum burst")
	}
}
