// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

/*
client.go - Rate-Limited Fetcher

Client performs single upstream calls against the achievement API. The API
key travels as the "y" query parameter and is supplied per call by the
caller; the client itself holds no credentials.

Resilience Mechanisms:
  - HTTP 429: exponential backoff (750ms, 1.5s, 3s) through retry.Policy,
    bounded by the caller's retry budget, Retry-After honored
  - Declared-empty statuses (422 on per-game leaderboards) decode as nil
  - Transport failures surface as *NetworkError for callers that retry them
  - Optional token-bucket pacing of outbound requests (x/time/rate)
  - Circuit breaker wrapper in circuit_breaker.go

Related Files:
  - endpoints.go: typed wrappers for each upstream endpoint
  - errors.go: error taxonomy
*/

//nolint:staticcheck // File documentation, not package doc
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/retry"
)

// maxErrorBodySize limits how much of an error body is kept for diagnostics.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most 64KB of r for an error message.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	if len(body) == maxErrorBodySize {
		return string(body) + "\n... (truncated)"
	}
	return string(body)
}

// FetchOptions tunes a single Fetch.
type FetchOptions struct {
	// RateLimitRetries is how many times a 429 is retried before giving up.
	RateLimitRetries int

	// EmptyStatuses lists non-2xx statuses that mean "no data". Fetch
	// returns a nil body and no error for them.
	EmptyStatuses []int
}

func (o FetchOptions) isEmpty(status int) bool {
	for _, s := range o.EmptyStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Fetcher issues one upstream call and returns the decoded JSON body.
// Implemented by *Client and *BreakerClient.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, endpoint string, params url.Values, opts FetchOptions) (any, error)
}

// Client is the HTTP implementation of Fetcher.
type Client struct {
	baseURL        string
	client         *http.Client
	pacer          *rate.Limiter
	retryBaseDelay time.Duration
	maxRetryAfter  time.Duration
}

// NewClient creates a client from the upstream configuration.
//
// The client is configured with:
//   - cfg.Timeout HTTP timeout (30s default)
//   - cfg.RateLimitBaseDelay as the first 429 backoff, doubling per retry
//   - cfg.RequestsPerSecond/cfg.Burst outbound pacing, disabled when zero
func NewClient(cfg *config.UpstreamConfig) *Client {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		pacer:          rate.NewLimiter(limit, burst),
		retryBaseDelay: cfg.RateLimitBaseDelay,
		maxRetryAfter:  cfg.MaxRetryAfter,
	}
}

// Fetch performs one logical upstream call. HTTP 429 responses are retried
// up to opts.RateLimitRetries times with exponential backoff; exhaustion
// returns an error matching ErrRateLimited. Other non-2xx statuses return
// *UpstreamError unless listed in opts.EmptyStatuses.
func (c *Client) Fetch(ctx context.Context, apiKey, endpoint string, params url.Values, opts FetchOptions) (any, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("y", apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	policy := retry.Policy{
		MaxAttempts: opts.RateLimitRetries + 1,
		BaseDelay:   c.retryBaseDelay,
		Multiplier:  2,
		MaxDelay:    c.maxRetryAfter,
		Retryable: func(err error) bool {
			var attempt *rateLimitedAttempt
			return errors.As(err, &attempt)
		},
		OnRetry: func(next int, delay time.Duration, err error) {
			metrics.RecordRetry("rate_limited")
		},
	}

	body, err := retry.DoValue(ctx, policy, func(ctx context.Context, attempt int) (any, error) {
		return c.do(ctx, endpoint, reqURL, opts)
	})

	var attempt *rateLimitedAttempt
	if errors.As(err, &attempt) {
		return nil, fmt.Errorf("%w: %s after %d retries (HTTP 429)", ErrRateLimited, endpoint, opts.RateLimitRetries)
	}
	return body, err
}

// do performs a single HTTP attempt.
func (c *Client) do(ctx context.Context, endpoint, reqURL string, opts FetchOptions) (any, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordUpstreamRequest(endpoint, "network", time.Since(start))
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordUpstreamRequest(endpoint, "rate_limited", time.Since(start))
		return nil, &rateLimitedAttempt{retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}

	case opts.isEmpty(resp.StatusCode):
		metrics.RecordUpstreamRequest(endpoint, "empty", time.Since(start))
		return nil, nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.RecordUpstreamRequest(endpoint, "error", time.Since(start))
		return nil, &UpstreamError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     readBodyForError(resp.Body),
		}
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.RecordUpstreamRequest(endpoint, "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: failed to decode %s response: %v", ErrUnexpectedShape, endpoint, err)
	}

	metrics.RecordUpstreamRequest(endpoint, "ok", time.Since(start))
	return body, nil
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP-date values
// are ignored and the computed backoff applies.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
