// Package ratelimit throttles inbound webhook calls per client.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket per client key. Buckets start full; the burst
// size equals the per-second rate.
type Limiter struct {
	mu      sync.Mutex
	rate    float64
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// New creates a limiter allowing perSecond requests per key. A rate of 0 or
// less disables limiting.
func New(perSecond int) *Limiter {
	return &Limiter{
		rate:    float64(perSecond),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Enabled reports whether the limiter throttles anything.
func (l *Limiter) Enabled() bool { return l != nil && l.rate > 0 }

// Allow consumes one token for key and reports whether the call may proceed.
func (l *Limiter) Allow(key string) bool {
	if !l.Enabled() {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.rate, lastFill: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate)

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Prune drops buckets that have been refilled to capacity, i.e. clients
// idle for at least one second. It returns the number of dropped buckets.
func (l *Limiter) Prune() int {
	if !l.Enabled() {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for key, b := range l.buckets {
		b.refill(now, l.rate)
		if b.tokens >= l.rate {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (b *bucket) refill(now time.Time, rate float64) {
	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * rate
	if b.tokens > rate {
		b.tokens = rate
	}
	b.lastFill = now
}
