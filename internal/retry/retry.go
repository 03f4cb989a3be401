// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package retry provides the single retry/backoff loop used by every caller
// that retries upstream work: the 429 path of the fetcher, transient network
// retries during pagination, and the now-playing retries of the leaderboard
// builder. Each caller describes its behavior with a Policy instead of
// writing its own loop.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// Multiplier scales the delay after each retry. 0 and 1 give a fixed
	// delay, 2 doubles it.
	Multiplier float64

	// MaxDelay caps any single wait, including hinted ones. Zero means no cap.
	MaxDelay time.Duration

	// Retryable reports whether err should be retried. Nil retries every error.
	Retryable func(err error) bool

	// OnRetry is called before waiting for the next attempt. next is the
	// 1-based number of the attempt about to run.
	OnRetry func(next int, delay time.Duration, err error)
}

// DelayHinter is implemented by errors that carry a server-provided wait,
// such as an HTTP Retry-After header. A positive hint replaces the computed
// backoff for that retry.
type DelayHinter interface {
	RetryAfter() time.Duration
}

// Delay returns the backoff before attempt next (2-based: the wait after the
// first failure is Delay(2)).
func (p Policy) Delay(next int) time.Duration {
	if next < 2 {
		return 0
	}
	d := float64(p.BaseDelay)
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	for i := 2; i < next; i++ {
		d *= mult
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. The last error is returned unchanged so callers can match
// it with errors.Is. Waiting between attempts honors ctx cancellation.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	maxAttempts := p.attempts()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx, attempt)
		if err == nil {
			return v, nil
		}
		if attempt >= maxAttempts || !p.retryable(err) {
			return zero, err
		}

		delay := p.Delay(attempt + 1)
		var h DelayHinter
		if errors.As(err, &h) {
			if hint := h.RetryAfter(); hint > 0 {
				delay = hint
				if p.MaxDelay > 0 && delay > p.MaxDelay {
					delay = p.MaxDelay
				}
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
