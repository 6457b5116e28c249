// Package ratelimit provides keyed token-bucket rate limiting for the
// verification endpoints. The per-challenge attempt budget bounds
// guessing against one challenge; this bounds how fast one client can
// open and burn challenges or probe TOTP and backup codes.
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a single token-bucket counter, safe for concurrent use
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// NewTokenBucket creates a bucket allowing bursts of capacity requests,
// refilling at refillRate requests per second
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether one more request fits in the budget
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// VerifyLimiter tracks a token bucket per key (client IP, user ID).
// Inactive buckets are evicted after ttl so the map stays bounded.
type VerifyLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate float64
	ttl        time.Duration
	stopEvict  chan struct{}
	evictOnce  sync.Once
}

// NewVerifyLimiter creates a keyed limiter. Pass ttl 0 to keep buckets
// forever. When ttl is positive an eviction goroutine runs until Close.
func NewVerifyLimiter(capacity int, refillRate float64, ttl time.Duration) *VerifyLimiter {
	l := &VerifyLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
		stopEvict:  make(chan struct{}),
	}
	if ttl > 0 {
		go l.evictLoop()
	}
	return l
}

// Close stops the eviction goroutine if one was started
func (l *VerifyLimiter) Close() {
	l.evictOnce.Do(func() {
		close(l.stopEvict)
	})
}

// Allow reports whether a request under the given key fits the budget
func (l *VerifyLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewTokenBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Len returns the number of live buckets
func (l *VerifyLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

func (l *VerifyLimiter) evictLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stopEvict:
			return
		}
	}
}

func (l *VerifyLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, bucket := range l.buckets {
		bucket.mu.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mu.Unlock()
		if idle > l.ttl {
			delete(l.buckets, key)
		}
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
