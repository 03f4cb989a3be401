// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/retry"
	"github.com/tomtom215/rivalry/internal/upstream"
)

// RecentGamesPageSize is the page size of the recently-played endpoint.
const RecentGamesPageSize = 50

// RecentAchievements returns unlocks from the last minutes minutes, at most
// limit of them (limit <= 0 returns all). Softcore unlocks are included.
func (a *Aggregator) RecentAchievements(ctx context.Context, apiKey, username string, minutes, limit int) ([]models.UnlockEvent, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	key := cache.GenerateKey("recent-achievements", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), N1: minutes,
	})
	unlocks, err := cache.GetOrLoad(a.cache, key, 0, func() ([]models.UnlockEvent, error) {
		list, err := a.src.RecentAchievements(ctx, apiKey, username, minutes)
		if err != nil {
			return nil, fmt.Errorf("recent achievements for %s: %w", username, err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(unlocks) > limit {
		unlocks = unlocks[:limit]
	}
	return unlocks, nil
}

// RecentGames returns up to count recently played games, deduplicated by
// game id. Pages of RecentGamesPageSize are requested at offsets 0, 50,
// 100...; a page shorter than requested ends pagination. A transport failure
// retries that page; an exhausted retry budget is returned as the error.
func (a *Aggregator) RecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	if count <= 0 {
		return []models.GameSummary{}, nil
	}
	key := cache.GenerateKey("recent-games", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), N1: count,
	})
	return cache.GetOrLoad(a.cache, key, 0, func() ([]models.GameSummary, error) {
		return a.fetchRecentGames(ctx, apiKey, username, count)
	})
}

func (a *Aggregator) fetchRecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error) {
	policy := retry.Policy{
		MaxAttempts: a.opts.TransientAttempts,
		BaseDelay:   a.opts.TransientBaseDelay,
		Multiplier:  2,
		Retryable:   upstream.IsTransient,
		OnRetry: func(next int, delay time.Duration, err error) {
			metrics.RecordRetry("transient")
			logging.Ctx(ctx).Debug().Err(err).
				Str("username", username).
				Int("attempt", next).
				Dur("delay", delay).
				Msg("Retrying recently played page")
		},
	}

	var pages [][]models.GameSummary
	for offset := 0; offset < count; offset += RecentGamesPageSize {
		want := min(RecentGamesPageSize, count-offset)
		page, err := retry.DoValue(ctx, policy, func(ctx context.Context, _ int) ([]models.GameSummary, error) {
			return a.src.RecentlyPlayedGames(ctx, apiKey, username, want, offset)
		})
		if err != nil {
			return nil, fmt.Errorf("recently played games for %s at offset %d: %w", username, offset, err)
		}
		pages = append(pages, page)
		if len(page) < want {
			break
		}
	}

	games := models.MergeGames(pages...)
	if len(games) > count {
		games = games[:count]
	}
	return games, nil
}

// RecentTimes returns username's leaderboard entries across the games in
// their last gamesWindow recently played games, newest first, truncated to
// limit (limit <= 0 keeps all).
//
// Per-game lookups run in the game-leaderboards pool. A game whose lookup
// fails contributes no rows. When listing candidate games fails on a spent
// transient retry budget the result is empty rather than an error.
func (a *Aggregator) RecentTimes(ctx context.Context, apiKey, username string, gamesWindow, limit int) ([]models.LeaderboardTimeRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	games, err := a.RecentGames(ctx, apiKey, username, gamesWindow)
	if err != nil {
		if upstream.IsTransient(err) {
			logging.Ctx(ctx).Warn().Err(err).Str("username", username).
				Msg("Could not list candidate games for recent times")
			return []models.LeaderboardTimeRow{}, nil
		}
		return nil, err
	}

	perGame := make([][]models.LeaderboardTimeRow, len(games))
	var wg sync.WaitGroup
	for i, g := range games {
		wg.Add(1)
		go func(i int, g models.GameSummary) {
			defer wg.Done()
			rows, err := limiter.Do(ctx, a.games, func(ctx context.Context) ([]models.LeaderboardTimeRow, error) {
				return a.gameTimes(ctx, apiKey, username, g.GameID, g.Title)
			})
			if err != nil {
				logging.Ctx(ctx).Debug().Err(err).
					Str("username", username).
					Int("game_id", g.GameID).
					Msg("Skipping game in recent times")
				return
			}
			out := make([]models.LeaderboardTimeRow, len(rows))
			for j, r := range rows {
				if r.GameTitle == "" {
					r.GameTitle = g.Title
				}
				out[j] = r
			}
			perGame[i] = out
		}(i, g)
	}
	wg.Wait()

	merged := make([]models.LeaderboardTimeRow, 0)
	for _, rows := range perGame {
		merged = append(merged, rows...)
	}
	SortTimesNewestFirst(merged)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// SortTimesNewestFirst orders rows by DateUpdated descending. Unparseable
// dates count as the epoch and sort last; ties keep their input order.
func SortTimesNewestFirst(rows []models.LeaderboardTimeRow) {
	keys := make([]int64, len(rows))
	for i, r := range rows {
		if t, ok := parseUpstreamTime(r.DateUpdated); ok {
			keys[i] = t.Unix()
		}
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool { return keys[idx[x]] > keys[idx[y]] })

	sorted := make([]models.LeaderboardTimeRow, len(rows))
	for i, j := range idx {
		sorted[i] = rows[j]
	}
	copy(rows, sorted)
}

// GameTimes returns username's entries on one game's leaderboards.
func (a *Aggregator) GameTimes(ctx context.Context, apiKey, username string, gameID int) ([]models.LeaderboardTimeRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return a.gameTimes(ctx, apiKey, username, gameID, "")
}

func (a *Aggregator) gameTimes(ctx context.Context, apiKey, username string, gameID int, title string) ([]models.LeaderboardTimeRow, error) {
	if gameID <= 0 {
		return nil, fmt.Errorf("%w: game id must be positive", ErrInvalidArgument)
	}
	key := cache.GenerateKey("game-times", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), N1: gameID,
	})
	return cache.GetOrLoad(a.cache, key, 0, func() ([]models.LeaderboardTimeRow, error) {
		rows, err := a.src.UserGameLeaderboards(ctx, apiKey, username, gameID, title)
		if err != nil {
			return nil, fmt.Errorf("leaderboards of game %d for %s: %w", gameID, username, err)
		}
		return rows, nil
	})
}
