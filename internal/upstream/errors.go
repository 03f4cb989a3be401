// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMissingAPIKey is returned before any network call when no API key
	// was supplied.
	ErrMissingAPIKey = errors.New("upstream: api key required")

	// ErrRateLimited means the 429 retry budget was exhausted.
	ErrRateLimited = errors.New("upstream: rate limited")

	// ErrUnexpectedShape means a 2xx body did not have the required
	// structure, e.g. an object where a list is required.
	ErrUnexpectedShape = errors.New("upstream: unexpected response shape")

	// ErrTransientNetwork is matched by every *NetworkError.
	ErrTransientNetwork = errors.New("upstream: transient network error")

	// ErrNotFound is matched by a 404 *UpstreamError and by lookups that
	// resolve to no user.
	ErrNotFound = errors.New("upstream: not found")

	// ErrCircuitOpen means the breaker rejected the call without sending it.
	ErrCircuitOpen = errors.New("upstream: circuit open")
)

// UpstreamError is a non-2xx response that the caller did not declare empty.
type UpstreamError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Endpoint, e.Status, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// NetworkError wraps a transport-level failure (timeout, reset, DNS).
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransientNetwork) match every NetworkError.
func (e *NetworkError) Is(target error) bool {
	return target == ErrTransientNetwork
}

// rateLimitedAttempt is one 429 response. It never escapes the client: once
// the budget is spent it is replaced by ErrRateLimited.
type rateLimitedAttempt struct {
	retryAfter time.Duration
}

func (e *rateLimitedAttempt) Error() string { return "HTTP 429" }

// RetryAfter implements retry.DelayHinter.
func (e *rateLimitedAttempt) RetryAfter() time.Duration { return e.retryAfter }

// IsRateLimited reports whether err is (or wraps) a rate limit failure.
func IsRateLimited(err error) bool {
	var attempt *rateLimitedAttempt
	return errors.Is(err, ErrRateLimited) || errors.As(err, &attempt)
}

// IsTransient reports whether err is a retryable transport failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status
	}
	return 0
}
