// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package leaderboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/retry"
	"github.com/tomtom215/rivalry/internal/upstream"
)

// wave2 attaches now-playing to every row. Each user retries on rate
// limiting with a fixed delay and shows the retry in its row; a final
// failure clears the placeholder and leaves now-playing empty.
func (b *Builder) wave2(ctx context.Context, req Request, users []string, build *Build) {
	attempts := b.opts.NowPlayingAttempts

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			policy := retry.Policy{
				MaxAttempts: attempts,
				BaseDelay:   b.opts.NowPlayingRetryDelay,
				Multiplier:  1,
				Retryable:   upstream.IsRateLimited,
				OnRetry: func(next int, _ time.Duration, _ error) {
					metrics.RecordRetry("now_playing")
					build.updateRow(2, u, func(r *models.LeaderboardRow) {
						r.NowPlayingStatus = fmt.Sprintf(retryingFormat, next, attempts)
					})
				},
			}
			info, err := retry.DoValue(ctx, policy, func(ctx context.Context, _ int) (models.NowPlayingInfo, error) {
				return b.src.NowPlaying(ctx, req.APIKey, u, b.opts.NowPlayingWindow)
			})
			if err != nil {
				logWave(ctx, 2, u, err)
				build.updateRow(2, u, func(r *models.LeaderboardRow) {
					r.NowPlaying = nil
					r.NowPlayingStatus = ""
				})
				return
			}
			build.updateRow(2, u, func(r *models.LeaderboardRow) {
				r.NowPlaying = &info
				r.NowPlayingStatus = ""
			})
		}()
	}
	wg.Wait()
}

// wave3 attaches daily points to every row and records them in the daily
// history, then prunes history past the retention window. A user whose
// daily points fail keeps a nil value.
func (b *Builder) wave3(ctx context.Context, req Request, users []string, build *Build) {
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dp, err := b.src.DailyPoints(ctx, req.APIKey, u, req.Mode)
			if err != nil {
				logWave(ctx, 3, u, err)
				return
			}
			if b.history != nil {
				if err := b.history.Record(ctx, u, req.Mode, dp.Day, dp.Points); err != nil {
					logWave(ctx, 3, u, err)
				}
			}
			points := dp.Points
			build.updateRow(3, u, func(r *models.LeaderboardRow) {
				r.DailyPoints = &points
			})
		}()
	}
	wg.Wait()

	if b.history != nil {
		if _, err := b.history.Prune(ctx, b.now(), b.opts.RetentionDays, b.opts.Location); err != nil {
			logWave(ctx, 3, "", err)
		}
	}
	build.update(3, func(*models.LeaderboardSnapshot) {})
}
