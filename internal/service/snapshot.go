// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
)

// SnapshotDailyPointsForAllKnownUsers fetches today's points live for every
// self user and every friend and writes each into the ledger. Work runs in
// the snapshot pool. Per-user failures, ledger writes included, are logged
// and skipped; the number of users actually recorded is returned.
func (c *Core) SnapshotDailyPointsForAllKnownUsers(ctx context.Context, apiKey string, mode models.Mode) (int, error) {
	if err := checkKey(apiKey); err != nil {
		return 0, err
	}
	users, err := c.store.KnownUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list known users: %w", err)
	}

	pool := c.pools.Pool(limiter.PoolSnapshot)
	var succeeded, failed atomic.Int32
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := limiter.Run(ctx, pool, func(ctx context.Context) error {
				_, err := c.agg.RecordDailyPoints(ctx, apiKey, u, mode)
				return err
			})
			if err != nil {
				failed.Add(1)
				logging.Ctx(ctx).Warn().Err(err).
					Str("username", u).
					Str("mode", string(mode)).
					Msg("Daily snapshot failed for user")
				return
			}
			succeeded.Add(1)
		}()
	}
	wg.Wait()

	ok, bad := int(succeeded.Load()), int(failed.Load())
	metrics.RecordSnapshotRun(string(mode), ok, bad)
	logging.Ctx(ctx).Info().
		Str("mode", string(mode)).
		Int("users", len(users)).
		Int("succeeded", ok).
		Int("failed", bad).
		Msg("Daily snapshot complete")
	return ok, nil
}
