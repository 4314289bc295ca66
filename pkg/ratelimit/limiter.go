package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"lolcrawler/pkg/config"
	"lolcrawler/pkg/logx"
	"lolcrawler/pkg/metrics"
)

// Default bucket sizes for limit classes the upstream has not yet described
// via headers. Both are replaced by X-Method-Rate-Limit / X-Service-Rate-Limit
// feedback after the first response on each key.
const (
	defaultMethodLimitPerSecond  = 20
	defaultServiceLimitPerSecond = 100
)

// guardedBucket pairs a bucket with its lock so header updates can swap the
// bucket wholesale while acquires are serialized.
type guardedBucket struct {
	mu     sync.Mutex
	bucket *TokenBucket
}

func (g *guardedBucket) tryAcquire(n int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bucket.TryAcquire(n)
}

func (g *guardedBucket) available() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bucket.Available()
}

// replace installs a fresh bucket, resetting it to full capacity. The
// upstream's just-returned limits are trusted as the current truth.
func (g *guardedBucket) replace(b *TokenBucket) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bucket = b
}

// Limiter enforces the four Riot limit classes on every outbound request:
// application per-second, application per-two-minutes, per-method
// (endpoint+region), and per-service (3rd path segment + region).
type Limiter struct {
	appPerSecond     *guardedBucket
	appPerTwoMinutes *guardedBucket

	mu              sync.Mutex
	methodLimiters  map[string]*guardedBucket
	serviceLimiters map[string]*guardedBucket

	cfg      config.RateLimitConfig
	recorder *metrics.Recorder
	logger   *logx.Logger
}

// Status is a point-in-time snapshot of limiter state for health reporting.
type Status struct {
	ApplicationTokensPerSecond     int
	ApplicationTokensPerTwoMinutes int
	MethodLimiterCount             int
	ServiceLimiterCount            int
}

// NewLimiter creates a limiter seeded from configuration. The recorder may be
// nil.
func NewLimiter(cfg config.RateLimitConfig, recorder *metrics.Recorder) *Limiter {
	return &Limiter{
		appPerSecond: &guardedBucket{
			bucket: PerSecond(cfg.ApplicationLimitPerSecond, cfg.ApplicationLimitPerSecond),
		},
		appPerTwoMinutes: &guardedBucket{
			bucket: PerTwoMinutes(cfg.ApplicationLimitPerTwoMinutes, cfg.ApplicationLimitPerTwoMinutes),
		},
		methodLimiters:  make(map[string]*guardedBucket),
		serviceLimiters: make(map[string]*guardedBucket),
		cfg:             cfg,
		recorder:        recorder,
		logger:          logx.NewLogger("ratelimit"),
	}
}

// AcquirePermit blocks until one request's worth of tokens is taken from all
// four limit classes, retrying with exponential backoff up to MaxRetries.
// Failure after all retries is retryable at the caller's level.
func (l *Limiter) AcquirePermit(ctx context.Context, endpoint, region string) error {
	for attempt := 0; attempt < l.cfg.MaxRetries; attempt++ {
		if l.tryAcquireAll(endpoint, region) {
			return nil
		}

		if attempt+1 < l.cfg.MaxRetries {
			delay := time.Duration(l.cfg.RetryDelayMs) * time.Millisecond << (attempt + 1)
			l.logger.Debug("rate limit hit, retrying in %v (attempt %d/%d)", delay, attempt+1, l.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("failed to acquire rate limit permit after %d retries", l.cfg.MaxRetries)
}

// tryAcquireAll takes one token from each class in a fixed order: app/s,
// app/2min, method, service. The first failure short-circuits; tokens already
// consumed are not refunded. Over-consuming our own budget is safe, handing
// the upstream an extra request is not.
func (l *Limiter) tryAcquireAll(endpoint, region string) bool {
	if !l.appPerSecond.tryAcquire(1) {
		l.noteBlocked("app_per_second", "")
		return false
	}
	if !l.appPerTwoMinutes.tryAcquire(1) {
		l.noteBlocked("app_per_two_minutes", "")
		return false
	}

	methodKey := endpoint + ":" + region
	if !l.methodLimiter(methodKey).tryAcquire(1) {
		l.noteBlocked("method", methodKey)
		return false
	}

	serviceKey := serviceFromEndpoint(endpoint) + ":" + region
	if !l.serviceLimiter(serviceKey).tryAcquire(1) {
		l.noteBlocked("service", serviceKey)
		return false
	}
	return true
}

func (l *Limiter) noteBlocked(class, key string) {
	if key != "" {
		l.logger.Debug("%s rate limit hit for %s", class, key)
	} else {
		l.logger.Debug("%s rate limit hit", class)
	}
	l.recorder.IncRateLimitWait(class)
}

func (l *Limiter) methodLimiter(key string) *guardedBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.methodLimiters[key]
	if !ok {
		g = &guardedBucket{bucket: PerSecond(defaultMethodLimitPerSecond, defaultMethodLimitPerSecond)}
		l.methodLimiters[key] = g
	}
	return g
}

func (l *Limiter) serviceLimiter(key string) *guardedBucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	g, ok := l.serviceLimiters[key]
	if !ok {
		g = &guardedBucket{bucket: PerSecond(defaultServiceLimitPerSecond, defaultServiceLimitPerSecond)}
		l.serviceLimiters[key] = g
	}
	return g
}

// serviceFromEndpoint extracts the service segment from an endpoint path,
// e.g. "/lol/match/v5/matches/X" -> "match".
func serviceFromEndpoint(endpoint string) string {
	parts := strings.Split(endpoint, "/")
	if len(parts) >= 3 {
		return parts[2]
	}
	return "unknown"
}

// UpdateFromHeaders re-tunes buckets from the upstream's rate limit headers.
// Header values have the form "count:window,count:window,..." with windows in
// seconds; window 1 replaces the per-second bucket and window 120 the
// per-two-minutes bucket. Other windows are ignored.
func (l *Limiter) UpdateFromHeaders(endpoint, region string, headers http.Header) {
	if v := headers.Get("X-App-Rate-Limit"); v != "" {
		l.updateAppLimits(v)
	}
	if v := headers.Get("X-Method-Rate-Limit"); v != "" {
		l.updateKeyedLimit(l.methodLimiter(endpoint+":"+region), v)
	}
	if v := headers.Get("X-Service-Rate-Limit"); v != "" {
		key := serviceFromEndpoint(endpoint) + ":" + region
		l.updateKeyedLimit(l.serviceLimiter(key), v)
	}
}

func (l *Limiter) updateAppLimits(value string) {
	for _, p := range limitPairs(value) {
		switch p.window {
		case 1:
			l.appPerSecond.replace(PerSecond(p.count, p.count))
		case 120:
			l.appPerTwoMinutes.replace(PerTwoMinutes(p.count, p.count))
		}
	}
}

// updateKeyedLimit applies the per-second pair of a method or service header
// to the given bucket slot.
func (l *Limiter) updateKeyedLimit(g *guardedBucket, value string) {
	for _, p := range limitPairs(value) {
		if p.window == 1 {
			g.replace(PerSecond(p.count, p.count))
			return
		}
	}
}

type limitPair struct {
	count  int
	window int
}

// limitPairs parses "count:window,...". Malformed pairs are skipped.
func limitPairs(value string) []limitPair {
	var pairs []limitPair
	for _, pair := range strings.Split(value, ",") {
		countStr, windowStr, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		count, err1 := strconv.Atoi(strings.TrimSpace(countStr))
		window, err2 := strconv.Atoi(strings.TrimSpace(windowStr))
		if err1 != nil || err2 != nil {
			continue
		}
		pairs = append(pairs, limitPair{count: count, window: window})
	}
	return pairs
}

// Handle429 sleeps out the upstream's Retry-After, or the configured retry
// delay when the header was absent. The caller decides whether to retry.
func (l *Limiter) Handle429(ctx context.Context, retryAfter *int) {
	delay := time.Duration(l.cfg.RetryDelayMs) * time.Millisecond
	if retryAfter != nil {
		delay = time.Duration(*retryAfter) * time.Second
	}

	l.logger.Warn("received 429 response, waiting %v before retry", delay)
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// GetStatus snapshots current limiter state.
func (l *Limiter) GetStatus() Status {
	l.mu.Lock()
	methodCount := len(l.methodLimiters)
	serviceCount := len(l.serviceLimiters)
	l.mu.Unlock()

	return Status{
		ApplicationTokensPerSecond:     l.appPerSecond.available(),
		ApplicationTokensPerTwoMinutes: l.appPerTwoMinutes.available(),
		MethodLimiterCount:             methodCount,
		ServiceLimiterCount:            serviceCount,
	}
}
