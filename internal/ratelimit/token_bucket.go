// Package ratelimit throttles the credential and OTP endpoints.
package ratelimit

import (
	"sync"
	"time"

	"github.com/quillform/quillform/internal/clock"
)

type bucket struct {
	tokens float64
	ts     time.Time
}

// TokenBucket is a keyed in-memory limiter. Buckets refill continuously at
// rate tokens per second up to burst.
type TokenBucket struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	clock   clock.Clock
	rate    float64
	burst   int
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewTokenBucket(clk clock.Clock, rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		buckets: make(map[string]*bucket),
		clock:   clk,
		rate:    rate,
		burst:   burst,
	}
}

func (t *TokenBucket) Allow(key string) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(t.burst), ts: now}
		t.buckets[key] = b
	} else {
		delta := now.Sub(b.ts).Seconds()
		if delta < 0 {
			delta = 0
		}
		b.tokens += delta * t.rate
		if b.tokens > float64(t.burst) {
			b.tokens = float64(t.burst)
		}
		b.ts = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return Result{Allowed: true, Remaining: int(b.tokens)}
	}

	needed := 1.0 - b.tokens
	return Result{
		Allowed:    false,
		RetryAfter: time.Duration(needed / t.rate * float64(time.Second)),
	}
}

// Prune drops buckets idle long enough to be full again. Called
// opportunistically by the middleware.
func (t *TokenBucket) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	idle := time.Duration(float64(t.burst)/t.rate*2) * time.Second
	if idle < time.Second {
		idle = time.Second
	}
	for key, b := range t.buckets {
		if now.Sub(b.ts) > idle {
			delete(t.buckets, key)
		}
	}
}
