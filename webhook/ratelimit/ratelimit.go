package ratelimit

import (
	"sync"
	"time"
)

/* Token-bucket limiter keyed by route + source identity
 * Sits in front of signature verification so a flood is rejected before
 * any HMAC work happens. Buckets refill lazily on each Allow call; idle
 * buckets are evicted by GC so the map stays bounded.
 */

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

type Limiter struct {
	rate  float64 // tokens added per second
	burst float64 // bucket capacity
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a limiter with the given refill rate (tokens/second) and
// burst capacity, shared by all keys.
func New(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from key's bucket, reporting false when the
// bucket is empty. The caller answers HTTP 429 on false.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(l.burst, b.tokens+elapsed*l.rate)
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// GC evicts buckets idle longer than maxIdle and returns the eviction
// count. A fully refilled idle bucket behaves identically to a fresh one,
// so eviction never changes observable limiter behavior.
func (l *Limiter) GC(now time.Time, maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastRefill) > maxIdle {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
