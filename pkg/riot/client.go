// Package riot is the gateway for all outbound Riot API traffic. Every
// request flows through the rate limiter, is audited to the store, and feeds
// the upstream's rate limit headers back into the limiter.
package riot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lolcrawler/pkg/config"
	"lolcrawler/pkg/logx"
	"lolcrawler/pkg/metrics"
	"lolcrawler/pkg/persistence"
	"lolcrawler/pkg/ratelimit"
)

const requestTimeout = 30 * time.Second

// Client issues authenticated, rate-limited requests to the Riot API.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	store      *persistence.Store
	cfg        *config.Config
	recorder   *metrics.Recorder
	logger     *logx.Logger

	// Base URL lookups, overridable in tests.
	platformBase func(region string) string
	regionalBase func(region string) string
}

// NewClient creates a gateway sharing the given limiter and store.
// The recorder may be nil.
func NewClient(cfg *config.Config, limiter *ratelimit.Limiter, store *persistence.Store, recorder *metrics.Recorder) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: requestTimeout},
		limiter:      limiter,
		store:        store,
		cfg:          cfg,
		recorder:     recorder,
		logger:       logx.NewLogger("riot"),
		platformBase: cfg.BaseURLForRegion,
		regionalBase: cfg.RegionalBaseURLForRegion,
	}
}

// endpointOf strips the host prefix so limiter keys and audit rows use the
// bare path, e.g. "/lol/match/v5/matches/NA1_1".
func (c *Client) endpointOf(fullURL, region string) string {
	for _, base := range []string{c.platformBase(region), c.regionalBase(region)} {
		if rest, ok := strings.CutPrefix(fullURL, base); ok {
			return rest
		}
	}
	return fullURL
}

// request performs one rate-limited GET and classifies the response status.
// The response body is returned for 200; error statuses consume and close it.
func (c *Client) request(ctx context.Context, fullURL, region string) ([]byte, error) {
	endpoint := c.endpointOf(fullURL, region)
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	c.logger.Debug("requesting %s (region %s)", endpoint, region)

	if err := c.limiter.AcquirePermit(ctx, endpoint, region); err != nil {
		return nil, &Error{Type: ErrorTypeRateLimiter, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &Error{Type: ErrorTypeTransport, Err: err}
	}
	req.Header.Set("X-Riot-Token", c.cfg.RiotAPIKey)
	req.Header.Set("User-Agent", "lol-crawler/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Type: ErrorTypeTransport, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.recorder.ObserveAPIRequest(endpoint, region, strconv.Itoa(resp.StatusCode), time.Since(start))
	c.auditCall(endpoint, region, resp)
	c.limiter.UpdateFromHeaders(endpoint, region, resp.Header)

	switch {
	case resp.StatusCode == http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, &Error{Type: ErrorTypeTransport, Err: readErr}
		}
		return body, nil

	case resp.StatusCode == http.StatusBadRequest:
		return nil, &Error{Type: ErrorTypeBadRequest, Status: resp.StatusCode, Message: readBody(resp)}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{Type: ErrorTypeAuthentication, Status: resp.StatusCode}

	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Type: ErrorTypeNotFound, Status: resp.StatusCode}

	case resp.StatusCode == http.StatusTooManyRequests:
		c.limiter.Handle429(ctx, retryAfterSeconds(resp.Header))
		return nil, &Error{Type: ErrorTypeRateLimit, Status: resp.StatusCode}

	case resp.StatusCode >= 500 && resp.StatusCode <= 599:
		return nil, &Error{Type: ErrorTypeServiceUnavailable, Status: resp.StatusCode}

	default:
		return nil, &Error{Type: ErrorTypeAPI, Status: resp.StatusCode, Message: readBody(resp)}
	}
}

// requestJSON runs request with retries for retryable failures, decoding the
// 200 body into out. The backoff doubles per attempt from the configured
// retry delay.
func (c *Client) requestJSON(ctx context.Context, fullURL, region string, out any) error {
	maxRetries := c.cfg.RateLimits.MaxRetries
	retries := 0

	for {
		body, err := c.request(ctx, fullURL, region)
		if err == nil {
			if decodeErr := json.Unmarshal(body, out); decodeErr != nil {
				c.logger.Error("failed to parse response from %s: %v", fullURL, decodeErr)
				return &Error{Type: ErrorTypeDecode, Err: decodeErr}
			}
			return nil
		}

		apiErr, ok := err.(*Error)
		if !ok || !apiErr.IsRetryable() || retries >= maxRetries {
			return err
		}

		retries++
		delay := time.Duration(c.cfg.RateLimits.RetryDelayMs) * time.Millisecond << retries
		c.logger.Warn("request failed (attempt %d/%d): %v, retrying in %v", retries, maxRetries, err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// auditCall writes one api_calls row. Audit failures never fail the request.
func (c *Client) auditCall(endpoint, region string, resp *http.Response) {
	call := &persistence.APICall{
		Endpoint:           endpoint,
		Region:             region,
		Timestamp:          time.Now().UTC(),
		ResponseCode:       resp.StatusCode,
		RateLimitRemaining: appRateLimitCount(resp.Header),
	}
	if err := c.store.LogAPICall(call); err != nil {
		c.logger.Warn("failed to log api call: %v", err)
	}
}

// appRateLimitCount extracts the current per-second usage count from the
// "used:window,..." header, if present.
func appRateLimitCount(headers http.Header) *int {
	v := headers.Get("X-App-Rate-Limit-Count")
	if v == "" {
		return nil
	}
	first, _, _ := strings.Cut(v, ",")
	countStr, _, ok := strings.Cut(first, ":")
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil {
		return nil
	}
	return &n
}

func retryAfterSeconds(headers http.Header) *int {
	v := headers.Get("Retry-After")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

func readBody(resp *http.Response) string {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(body)
}

// GetSummonerByPUUID fetches a summoner profile by pid.
func (c *Client) GetSummonerByPUUID(ctx context.Context, region, pid string) (*Summoner, error) {
	var s Summoner
	url := summonerByPUUIDURL(c.platformBase(region), pid)
	if err := c.requestJSON(ctx, url, region, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSummonerByID fetches a summoner profile by encrypted summoner id.
func (c *Client) GetSummonerByID(ctx context.Context, region, summonerID string) (*Summoner, error) {
	var s Summoner
	url := summonerByIDURL(c.platformBase(region), summonerID)
	if err := c.requestJSON(ctx, url, region, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetMatchIDs fetches recent match ids for a pid. start and count are
// optional paging parameters.
func (c *Client) GetMatchIDs(ctx context.Context, region, pid string, start, count *int) ([]string, error) {
	var ids []string
	url := matchIDsByPUUIDURL(c.regionalBase(region), pid, start, count)
	if err := c.requestJSON(ctx, url, region, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetMatch fetches one match by id.
func (c *Client) GetMatch(ctx context.Context, region, matchID string) (*MatchDTO, error) {
	var m MatchDTO
	url := matchByIDURL(c.regionalBase(region), matchID)
	if err := c.requestJSON(ctx, url, region, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMatchTimeline fetches the event timeline for one match.
func (c *Client) GetMatchTimeline(ctx context.Context, region, matchID string) (*TimelineDTO, error) {
	var t TimelineDTO
	url := matchTimelineURL(c.regionalBase(region), matchID)
	if err := c.requestJSON(ctx, url, region, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetFeaturedGames fetches the live games currently featured by the
// spectator endpoint for a region.
func (c *Client) GetFeaturedGames(ctx context.Context, region string) (*FeaturedGames, error) {
	var f FeaturedGames
	url := featuredGamesURL(c.platformBase(region))
	if err := c.requestJSON(ctx, url, region, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetMasterLeague fetches the master league list for a queue.
func (c *Client) GetMasterLeague(ctx context.Context, region, queue string) (*LeagueList, error) {
	return c.getLeague(ctx, masterLeagueURL(c.platformBase(region), queue), region)
}

// GetGrandmasterLeague fetches the grandmaster league list for a queue.
func (c *Client) GetGrandmasterLeague(ctx context.Context, region, queue string) (*LeagueList, error) {
	return c.getLeague(ctx, grandmasterLeagueURL(c.platformBase(region), queue), region)
}

// GetChallengerLeague fetches the challenger league list for a queue.
func (c *Client) GetChallengerLeague(ctx context.Context, region, queue string) (*LeagueList, error) {
	return c.getLeague(ctx, challengerLeagueURL(c.platformBase(region), queue), region)
}

func (c *Client) getLeague(ctx context.Context, url, region string) (*LeagueList, error) {
	var l LeagueList
	if err := c.requestJSON(ctx, url, region, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// RateLimitStatus snapshots the shared limiter, for health reporting.
func (c *Client) RateLimitStatus() ratelimit.Status {
	return c.limiter.GetStatus()
}
