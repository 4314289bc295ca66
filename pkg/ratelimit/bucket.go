// Package ratelimit implements the layered, header-adaptive rate limiting used
// for all outbound Riot API traffic.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"lolcrawler/pkg/logx"
)

// TokenBucket is a classical token bucket with lazy refill: tokens are
// recomputed from elapsed wall time on every access instead of by a background
// timer. This keeps semantics correct across sleeps and scheduler pauses with
// no goroutines per bucket.
//
// TokenBucket is not safe for concurrent use; callers hold the enclosing lock.
type TokenBucket struct {
	lastRefill     time.Time
	capacity       int
	tokens         int
	refillRate     int
	refillInterval time.Duration
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(capacity, refillRate int, refillInterval time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:       capacity,
		tokens:         capacity,
		refillRate:     refillRate,
		refillInterval: refillInterval,
		lastRefill:     time.Now(),
	}
}

// PerSecond creates a bucket refilling ratePerSecond tokens every second.
func PerSecond(capacity, ratePerSecond int) *TokenBucket {
	return NewTokenBucket(capacity, ratePerSecond, time.Second)
}

// PerTwoMinutes creates a bucket refilling over the 120-second window used by
// the application-wide long limit.
func PerTwoMinutes(capacity, ratePerTwoMinutes int) *TokenBucket {
	return NewTokenBucket(capacity, ratePerTwoMinutes, 2*time.Minute)
}

// TryAcquire takes n tokens if available. Never blocks.
func (b *TokenBucket) TryAcquire(n int) bool {
	b.refill()
	if b.tokens >= n {
		b.tokens -= n
		return true
	}
	return false
}

// Acquire takes n tokens, sleeping for the computed refill time if the bucket
// is short. It fails only if tokens are still insufficient after the wait,
// which indicates a misconfigured bucket (n > capacity).
func (b *TokenBucket) Acquire(ctx context.Context, n int) error {
	b.refill()
	if b.tokens >= n {
		b.tokens -= n
		return nil
	}

	needed := n - b.tokens
	wait := b.waitFor(needed)
	logx.Debugf("rate limit hit, waiting %v for %d tokens", wait, needed)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	b.refill()
	if b.tokens >= n {
		b.tokens -= n
		return nil
	}
	return fmt.Errorf("unable to acquire %d tokens after waiting %v", n, wait)
}

// Available returns the current token count after refill.
func (b *TokenBucket) Available() int {
	b.refill()
	return b.tokens
}

// Capacity returns the bucket's maximum token count.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}

// refill credits whole elapsed intervals. Partial intervals award nothing;
// the bucket is integral.
func (b *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed < b.refillInterval {
		return
	}

	intervals := int(elapsed / b.refillInterval)
	b.tokens += intervals * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// waitFor returns the sleep needed to accumulate the requested tokens,
// rounded up to whole refill intervals.
func (b *TokenBucket) waitFor(needed int) time.Duration {
	intervals := (needed + b.refillRate - 1) / b.refillRate
	return time.Duration(intervals) * b.refillInterval
}
