package ratelimit

import (
	"context"
	"net/http"
	"testing"

	"lolcrawler/pkg/config"
)

func testRateLimitConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		ApplicationLimitPerSecond:     20,
		ApplicationLimitPerTwoMinutes: 100,
		MaxConcurrentRequests:         10,
		RetryDelayMs:                  10,
		MaxRetries:                    3,
	}
}

func TestAcquirePermitSucceedsWithinLimits(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)

	for i := 0; i < 5; i++ {
		if err := l.AcquirePermit(context.Background(), "/lol/summoner/v4/summoners/by-puuid/x", "na1"); err != nil {
			t.Fatalf("acquire %d failed: %v", i+1, err)
		}
	}
}

func TestAcquireChainConsumesAllClasses(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)

	if !l.tryAcquireAll("/lol/match/v5/matches/NA1_1", "na1") {
		t.Fatal("first acquire should succeed")
	}

	status := l.GetStatus()
	if status.ApplicationTokensPerSecond != 19 {
		t.Errorf("expected 19 app/s tokens, got %d", status.ApplicationTokensPerSecond)
	}
	if status.ApplicationTokensPerTwoMinutes != 99 {
		t.Errorf("expected 99 app/2min tokens, got %d", status.ApplicationTokensPerTwoMinutes)
	}
	if status.MethodLimiterCount != 1 {
		t.Errorf("expected 1 method limiter, got %d", status.MethodLimiterCount)
	}
	if status.ServiceLimiterCount != 1 {
		t.Errorf("expected 1 service limiter, got %d", status.ServiceLimiterCount)
	}
}

func TestMethodLimiterKeyedByEndpointAndRegion(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)

	l.tryAcquireAll("/lol/summoner/v4/summoners/by-puuid/a", "na1")
	l.tryAcquireAll("/lol/summoner/v4/summoners/by-puuid/a", "euw1")
	l.tryAcquireAll("/lol/match/v5/matches/NA1_1", "na1")

	status := l.GetStatus()
	if status.MethodLimiterCount != 3 {
		t.Errorf("expected 3 method limiters, got %d", status.MethodLimiterCount)
	}
	// summoner:na1, summoner:euw1, match:na1
	if status.ServiceLimiterCount != 3 {
		t.Errorf("expected 3 service limiters, got %d", status.ServiceLimiterCount)
	}
}

func TestServiceFromEndpoint(t *testing.T) {
	cases := []struct {
		endpoint string
		want     string
	}{
		{"/lol/match/v5/matches/NA1_1", "match"},
		{"/lol/summoner/v4/summoners/by-puuid/x", "summoner"},
		{"/lol/league/v4/masterleagues/by-queue/RANKED_SOLO_5x5", "league"},
		{"bogus", "unknown"},
	}
	for _, tc := range cases {
		if got := serviceFromEndpoint(tc.endpoint); got != tc.want {
			t.Errorf("serviceFromEndpoint(%q) = %q, want %q", tc.endpoint, got, tc.want)
		}
	}
}

func TestUpdateFromHeadersTightensAppLimit(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)

	headers := http.Header{}
	headers.Set("X-App-Rate-Limit", "10:1,50:120")
	l.UpdateFromHeaders("/lol/summoner/v4/summoners/by-puuid/x", "na1", headers)

	status := l.GetStatus()
	if status.ApplicationTokensPerSecond != 10 {
		t.Fatalf("expected replaced bucket with 10 tokens, got %d", status.ApplicationTokensPerSecond)
	}
	if status.ApplicationTokensPerTwoMinutes != 50 {
		t.Fatalf("expected replaced bucket with 50 tokens, got %d", status.ApplicationTokensPerTwoMinutes)
	}

	// A burst of 11 against the tightened per-second bucket yields 10
	// successes and 1 failure.
	successes := 0
	for i := 0; i < 11; i++ {
		if l.appPerSecond.tryAcquire(1) {
			successes++
		}
	}
	if successes != 10 {
		t.Errorf("expected 10 successes after tightening, got %d", successes)
	}
}

func TestUpdateFromHeadersMethodLimit(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)
	endpoint := "/lol/match/v5/matches/NA1_1"

	headers := http.Header{}
	headers.Set("X-Method-Rate-Limit", "5:1")
	l.UpdateFromHeaders(endpoint, "na1", headers)

	g := l.methodLimiter(endpoint + ":na1")
	if got := g.available(); got != 5 {
		t.Errorf("expected method bucket replaced with 5 tokens, got %d", got)
	}
}

func TestUpdateFromHeadersIgnoresUnknownWindows(t *testing.T) {
	l := NewLimiter(testRateLimitConfig(), nil)

	headers := http.Header{}
	headers.Set("X-App-Rate-Limit", "7:10,30:600")
	l.UpdateFromHeaders("/x", "na1", headers)

	status := l.GetStatus()
	if status.ApplicationTokensPerSecond != 20 {
		t.Errorf("unknown windows should not replace buckets, got %d", status.ApplicationTokensPerSecond)
	}
}

func TestLimitPairsMalformed(t *testing.T) {
	pairs := limitPairs("20:1,notanumber,:5,10:120")
	if len(pairs) != 2 {
		t.Fatalf("expected 2 parsed pairs, got %d", len(pairs))
	}
	if pairs[0].count != 20 || pairs[0].window != 1 {
		t.Errorf("unexpected first pair: %+v", pairs[0])
	}
	if pairs[1].count != 10 || pairs[1].window != 120 {
		t.Errorf("unexpected second pair: %+v", pairs[1])
	}
}

func TestAcquirePermitFailsAfterRetries(t *testing.T) {
	cfg := testRateLimitConfig()
	cfg.ApplicationLimitPerSecond = 1
	cfg.RetryDelayMs = 1
	l := NewLimiter(cfg, nil)

	if err := l.AcquirePermit(context.Background(), "/x", "na1"); err != nil {
		t.Fatalf("first permit failed: %v", err)
	}
	// Bucket holds 1 token per second; immediate reacquire exhausts retries.
	if err := l.AcquirePermit(context.Background(), "/x", "na1"); err == nil {
		t.Error("expected permit failure after retries")
	}
}
