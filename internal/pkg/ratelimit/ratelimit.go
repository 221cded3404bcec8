// Package ratelimit implements a continuous token-bucket limiter held in
// process memory. Buckets are created lazily per key and never swept, so
// memory grows with the number of distinct keys seen over the process
// lifetime. Limits are per process: a restart or horizontal scale-out resets
// or fragments budgets.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a request identified by key may proceed given a
// budget of limit requests per window.
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// MemoryLimiter is the in-memory Limiter implementation.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewMemory creates an empty in-memory limiter.
func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow refills the bucket for key proportionally to the time elapsed since
// the last refill (capped at limit) and spends one token if at least one is
// available.
func (l *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(limit), lastRefill: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		b.tokens += elapsed.Seconds() / window.Seconds() * float64(limit)
		if b.tokens > float64(limit) {
			b.tokens = float64(limit)
		}
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
