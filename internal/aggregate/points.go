// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
)

const dateLayout = "2006-01-02"

// Sum holds the result of filtering and totaling a set of unlocks.
type Sum struct {
	Points         int
	RetroPoints    float64
	UnlockCount    int
	UnlockCountAll int
}

// SumUnlocks totals unlocks for mode. ModeHardcore counts hardcore unlocks
// only; UnlockCountAll is always the unfiltered count.
func SumUnlocks(unlocks []models.UnlockEvent, mode models.Mode) Sum {
	s := Sum{UnlockCountAll: len(unlocks)}
	for _, u := range unlocks {
		if mode != models.ModeAll && !u.Hardcore {
			continue
		}
		s.Points += u.Points
		s.RetroPoints += u.TrueRatio
		s.UnlockCount++
	}
	return s
}

// MonthWindow returns [first of the month, now] in loc. Explicit from/to
// dates (YYYY-MM-DD) override either bound: from starts at local midnight,
// to runs to the end of that day but never past now.
func MonthWindow(now time.Time, loc *time.Location, from, to string) (time.Time, time.Time, error) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	end := local

	if from != "" {
		d, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from date %q: %v", ErrInvalidArgument, from, err)
		}
		start = d
	}
	if to != "" {
		d, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to date %q: %v", ErrInvalidArgument, to, err)
		}
		if eod := d.AddDate(0, 0, 1).Add(-time.Second); eod.Before(end) {
			end = eod
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: window end %s is before start %s", ErrInvalidArgument, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

// DayStart returns local midnight of now's day in loc.
func DayStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// MonthlyPoints totals username's unlocks this month, or between the
// explicit from/to dates when given.
func (a *Aggregator) MonthlyPoints(ctx context.Context, apiKey, username string, mode models.Mode, from, to string) (models.MonthlyPoints, error) {
	if err := checkKey(apiKey); err != nil {
		return models.MonthlyPoints{}, err
	}
	now := a.now()
	start, end, err := MonthWindow(now, a.opts.Location, from, to)
	if err != nil {
		return models.MonthlyPoints{}, err
	}

	// The open end of the current window is "now", which is not part of the
	// key; the cache TTL bounds how stale an ongoing month may get.
	key := cache.GenerateKey("monthly", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), Mode: string(mode),
		From: start.Format(dateLayout), To: to,
	})
	return cache.GetOrLoad(a.cache, key, 0, func() (models.MonthlyPoints, error) {
		unlocks, err := a.src.AchievementsBetween(ctx, apiKey, username, start, end)
		if err != nil {
			return models.MonthlyPoints{}, fmt.Errorf("monthly points for %s: %w", username, err)
		}
		s := SumUnlocks(unlocks, mode)
		return models.MonthlyPoints{
			Username:       username,
			Mode:           mode,
			Points:         s.Points,
			RetroPoints:    s.RetroPoints,
			UnlockCount:    s.UnlockCount,
			UnlockCountAll: s.UnlockCountAll,
			From:           start,
			To:             end,
		}, nil
	})
}

// DailyPoints totals username's unlocks since local midnight and records the
// result in the ledger. A ledger failure is logged, never returned.
func (a *Aggregator) DailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error) {
	if err := checkKey(apiKey); err != nil {
		return models.DailyPoints{}, err
	}
	now := a.now()
	key, day := a.dailyKey(apiKey, username, mode, now)
	return cache.GetOrLoad(a.cache, key, 0, func() (models.DailyPoints, error) {
		dp, err := a.loadDaily(ctx, apiKey, username, mode, day, now)
		if err != nil {
			return models.DailyPoints{}, err
		}
		if err := a.record(ctx, dp, now); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("username", dp.Username).
				Str("day", dp.Day).
				Str("mode", string(dp.Mode)).
				Msg("Failed to record daily points")
		}
		return dp, nil
	})
}

// RecordDailyPoints always fetches today's points live, refreshes the cached
// value and writes the ledger. Unlike DailyPoints it returns the ledger error,
// so a nil error means the record was stored.
func (a *Aggregator) RecordDailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error) {
	if err := checkKey(apiKey); err != nil {
		return models.DailyPoints{}, err
	}
	if a.ledger == nil {
		return models.DailyPoints{}, ErrNoLedger
	}
	now := a.now()
	key, day := a.dailyKey(apiKey, username, mode, now)
	dp, err := a.loadDaily(ctx, apiKey, username, mode, day, now)
	if err != nil {
		return models.DailyPoints{}, err
	}
	a.cache.Set(key, dp)
	if err := a.record(ctx, dp, now); err != nil {
		return dp, fmt.Errorf("record daily points for %s: %w", username, err)
	}
	return dp, nil
}

func (a *Aggregator) dailyKey(apiKey, username string, mode models.Mode, now time.Time) (key, day string) {
	day = DayStart(now, a.opts.Location).Format(dateLayout)
	key = cache.GenerateKey("daily", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), Mode: string(mode), From: day,
	})
	return key, day
}

func (a *Aggregator) loadDaily(ctx context.Context, apiKey, username string, mode models.Mode, day string, now time.Time) (models.DailyPoints, error) {
	start := DayStart(now, a.opts.Location)
	unlocks, err := a.src.AchievementsBetween(ctx, apiKey, username, start, now)
	if err != nil {
		return models.DailyPoints{}, fmt.Errorf("daily points for %s: %w", username, err)
	}
	s := SumUnlocks(unlocks, mode)
	return models.DailyPoints{
		Username:       username,
		Mode:           mode,
		Day:            day,
		Points:         s.Points,
		UnlockCount:    s.UnlockCount,
		UnlockCountAll: s.UnlockCountAll,
	}, nil
}

func (a *Aggregator) record(ctx context.Context, dp models.DailyPoints, now time.Time) error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.UpsertDailyPoints(ctx, models.DailyPointsRecord{
		Username:  dp.Username,
		Day:       dp.Day,
		Mode:      dp.Mode,
		Points:    dp.Points,
		UpdatedAt: now,
	})
}
