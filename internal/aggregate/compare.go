// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/models"
)

// UserSummary returns username's normalized profile.
func (a *Aggregator) UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error) {
	if err := checkKey(apiKey); err != nil {
		return models.UserSummary{}, err
	}
	key := cache.GenerateKey("summary", keyParams{APIKey: apiKey, Username: models.CanonicalUsername(username)})
	return cache.GetOrLoad(a.cache, key, 0, func() (models.UserSummary, error) {
		s, err := a.src.UserSummary(ctx, apiKey, username)
		if err != nil {
			return models.UserSummary{}, fmt.Errorf("summary for %s: %w", username, err)
		}
		return s, nil
	})
}

// GameAchievements returns a game's achievements with username's progress.
func (a *Aggregator) GameAchievements(ctx context.Context, apiKey, username string, gameID int) ([]models.AchievementRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	if gameID <= 0 {
		return nil, fmt.Errorf("%w: game id must be positive", ErrInvalidArgument)
	}
	key := cache.GenerateKey("game-achievements", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username), N1: gameID,
	})
	return cache.GetOrLoad(a.cache, key, 0, func() ([]models.AchievementRow, error) {
		_, rows, err := a.src.GameProgress(ctx, apiKey, username, gameID)
		if err != nil {
			return nil, fmt.Errorf("achievements of game %d for %s: %w", gameID, username, err)
		}
		return rows, nil
	})
}

// CompareGameAchievements joins a game's achievements for me and them. Both
// users are fetched in parallel and either failure fails the comparison.
func (a *Aggregator) CompareGameAchievements(ctx context.Context, apiKey, me, them string, gameID int) ([]models.AchievementComparisonRow, error) {
	var mine, theirs []models.AchievementRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mine, err = a.GameAchievements(gctx, apiKey, me, gameID)
		return err
	})
	g.Go(func() error {
		var err error
		theirs, err = a.GameAchievements(gctx, apiKey, them, gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return JoinAchievements(mine, theirs), nil
}

// JoinAchievements merges two users' views of one achievement set by id.
// Rows either user earned come before rows nobody earned; ties sort by
// title, then id.
func JoinAchievements(mine, theirs []models.AchievementRow) []models.AchievementComparisonRow {
	byID := make(map[int]*models.AchievementComparisonRow, len(mine))
	order := make([]int, 0, len(mine))

	add := func(r models.AchievementRow) *models.AchievementComparisonRow {
		row, ok := byID[r.AchievementID]
		if !ok {
			row = &models.AchievementComparisonRow{
				AchievementID: r.AchievementID,
				Title:         r.Title,
				Description:   r.Description,
				Points:        r.Points,
				BadgeRef:      r.BadgeRef,
			}
			byID[r.AchievementID] = row
			order = append(order, r.AchievementID)
		}
		return row
	}
	for _, r := range mine {
		add(r).MeEarned = r.Earned
	}
	for _, r := range theirs {
		add(r).ThemEarned = r.Earned
	}

	out := make([]models.AchievementComparisonRow, 0, len(order))
	for _, id := range order {
		row := byID[id]
		row.Status = models.StatusFor(row.MeEarned, row.ThemEarned)
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := out[i].Status == models.StatusNone, out[j].Status == models.StatusNone
		if ni != nj {
			return !ni
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out
}

// CountProgress summarizes a comparison for one game tile.
func CountProgress(gameID int, rows []models.AchievementComparisonRow) models.GameProgressCounts {
	c := models.GameProgressCounts{GameID: gameID, Total: len(rows)}
	for _, r := range rows {
		c.TotalPoints += r.Points
		if r.MeEarned {
			c.MeEarned++
		}
		if r.ThemEarned {
			c.ThemEarned++
		}
		if r.MeEarned && r.ThemEarned {
			c.BothEarned++
		}
	}
	return c
}

// CompareGameTimes joins a game's leaderboard entries for me and them by
// leaderboard id, sorted by title then id.
func (a *Aggregator) CompareGameTimes(ctx context.Context, apiKey, me, them string, gameID int) ([]models.LeaderboardTimeComparisonRow, error) {
	var mine, theirs []models.LeaderboardTimeRow
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mine, err = a.GameTimes(gctx, apiKey, me, gameID)
		return err
	})
	g.Go(func() error {
		var err error
		theirs, err = a.GameTimes(gctx, apiKey, them, gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return JoinTimes(mine, theirs), nil
}

// JoinTimes merges two users' leaderboard entries by leaderboard id.
func JoinTimes(mine, theirs []models.LeaderboardTimeRow) []models.LeaderboardTimeComparisonRow {
	byID := make(map[int]*models.LeaderboardTimeComparisonRow)
	order := make([]int, 0, len(mine)+len(theirs))

	row := func(e models.LeaderboardTimeRow) *models.LeaderboardTimeComparisonRow {
		r, ok := byID[e.LeaderboardID]
		if !ok {
			r = &models.LeaderboardTimeComparisonRow{
				LeaderboardID: e.LeaderboardID,
				Title:         e.Title,
				Format:        e.Format,
			}
			byID[e.LeaderboardID] = r
			order = append(order, e.LeaderboardID)
		}
		return r
	}
	for _, e := range mine {
		row(e).MeEntry = &e
	}
	for _, e := range theirs {
		row(e).ThemEntry = &e
	}

	out := make([]models.LeaderboardTimeComparisonRow, 0, len(order))
	for _, id := range order {
		r := byID[id]
		r.Both = r.MeEntry != nil && r.ThemEntry != nil
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].LeaderboardID < out[j].LeaderboardID
	})
	return out
}
