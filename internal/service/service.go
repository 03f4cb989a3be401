// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package service is the core-facing surface used by the HTTP layer, the
// leaderboard poller and the snapshot scheduler. Every method takes the
// caller's API key and fails with upstream.ErrMissingAPIKey before doing
// anything else when it is empty.
package service

import (
	"context"
	"time"

	"github.com/tomtom215/rivalry/internal/aggregate"
	"github.com/tomtom215/rivalry/internal/leaderboard"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/upstream"
)

// Service is the set of core operations.
type Service interface {
	MonthlyPoints(ctx context.Context, apiKey, username string, mode models.Mode, from, to string) (models.MonthlyPoints, error)
	DailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error)
	DailyHistory(ctx context.Context, apiKey string, usernames []string, days int, mode models.Mode) (models.DailyHistory, error)
	RecentAchievements(ctx context.Context, apiKey, username string, minutes, limit int) ([]models.UnlockEvent, error)
	RecentTimes(ctx context.Context, apiKey, username string, gamesWindow, limit int) ([]models.LeaderboardTimeRow, error)
	RecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error)
	UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error)
	GameAchievements(ctx context.Context, apiKey, username string, gameID int) ([]models.AchievementRow, error)
	GameTimes(ctx context.Context, apiKey, username string, gameID int) ([]models.LeaderboardTimeRow, error)
	NowPlaying(ctx context.Context, apiKey, username string, windowSeconds int) (models.NowPlayingInfo, error)
	CompareGameAchievements(ctx context.Context, apiKey, me, them string, gameID int) ([]models.AchievementComparisonRow, error)
	CompareGameTimes(ctx context.Context, apiKey, me, them string, gameID int) ([]models.LeaderboardTimeComparisonRow, error)

	SnapshotDailyPointsForAllKnownUsers(ctx context.Context, apiKey string, mode models.Mode) (int, error)

	AddFriend(ctx context.Context, apiKey, owner, friend string) (models.Friend, error)
	RemoveFriend(ctx context.Context, apiKey, owner, friend string) (bool, error)
	Friends(ctx context.Context, apiKey, owner string) ([]models.Friend, error)

	BuildLeaderboard(ctx context.Context, apiKey, self string, mode models.Mode, publish leaderboard.PublishFunc) (*leaderboard.Build, error)
}

// Aggregates is the aggregation layer. *aggregate.Aggregator implements it.
type Aggregates interface {
	MonthlyPoints(ctx context.Context, apiKey, username string, mode models.Mode, from, to string) (models.MonthlyPoints, error)
	DailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error)
	RecordDailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error)
	RecentAchievements(ctx context.Context, apiKey, username string, minutes, limit int) ([]models.UnlockEvent, error)
	RecentTimes(ctx context.Context, apiKey, username string, gamesWindow, limit int) ([]models.LeaderboardTimeRow, error)
	RecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error)
	UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error)
	GameAchievements(ctx context.Context, apiKey, username string, gameID int) ([]models.AchievementRow, error)
	GameTimes(ctx context.Context, apiKey, username string, gameID int) ([]models.LeaderboardTimeRow, error)
	NowPlaying(ctx context.Context, apiKey, username string, windowSeconds int) (models.NowPlayingInfo, error)
	CompareGameAchievements(ctx context.Context, apiKey, me, them string, gameID int) ([]models.AchievementComparisonRow, error)
	CompareGameTimes(ctx context.Context, apiKey, me, them string, gameID int) ([]models.LeaderboardTimeComparisonRow, error)
}

var _ Aggregates = (*aggregate.Aggregator)(nil)

// Store is the durable tier. *database.DB implements it.
type Store interface {
	DailyHistory(ctx context.Context, usernames []string, days int, mode models.Mode, now time.Time, loc *time.Location) (models.DailyHistory, error)
	AddFriend(ctx context.Context, owner, friend string) (models.Friend, error)
	RemoveFriend(ctx context.Context, owner, friend string) (bool, error)
	Friends(ctx context.Context, owner string) ([]models.Friend, error)
	KnownUsers(ctx context.Context) ([]string, error)
}

// Core implements Service.
type Core struct {
	agg   Aggregates
	store Store
	board *leaderboard.Builder
	pools *limiter.Set
	loc   *time.Location
	now   func() time.Time
}

var _ Service = (*Core)(nil)

// New creates the core service.
func New(agg Aggregates, store Store, board *leaderboard.Builder, pools *limiter.Set, loc *time.Location) *Core {
	if loc == nil {
		loc = time.Local
	}
	return &Core{
		agg:   agg,
		store: store,
		board: board,
		pools: pools,
		loc:   loc,
		now:   time.Now,
	}
}

func checkKey(apiKey string) error {
	if apiKey == "" {
		return upstream.ErrMissingAPIKey
	}
	return nil
}

func (c *Core) MonthlyPoints(ctx context.Context, apiKey, username string, mode models.Mode, from, to string) (models.MonthlyPoints, error) {
	if err := checkKey(apiKey); err != nil {
		return models.MonthlyPoints{}, err
	}
	return c.agg.MonthlyPoints(ctx, apiKey, username, mode, from, to)
}

func (c *Core) DailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error) {
	if err := checkKey(apiKey); err != nil {
		return models.DailyPoints{}, err
	}
	return c.agg.DailyPoints(ctx, apiKey, username, mode)
}

// DailyHistory reads the ledger only; it makes no upstream call.
func (c *Core) DailyHistory(ctx context.Context, apiKey string, usernames []string, days int, mode models.Mode) (models.DailyHistory, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.store.DailyHistory(ctx, usernames, days, mode, c.now(), c.loc)
}

func (c *Core) RecentAchievements(ctx context.Context, apiKey, username string, minutes, limit int) ([]models.UnlockEvent, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.RecentAchievements(ctx, apiKey, username, minutes, limit)
}

func (c *Core) RecentTimes(ctx context.Context, apiKey, username string, gamesWindow, limit int) ([]models.LeaderboardTimeRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.RecentTimes(ctx, apiKey, username, gamesWindow, limit)
}

func (c *Core) RecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.RecentGames(ctx, apiKey, username, count)
}

func (c *Core) UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error) {
	if err := checkKey(apiKey); err != nil {
		return models.UserSummary{}, err
	}
	return c.agg.UserSummary(ctx, apiKey, username)
}

func (c *Core) GameAchievements(ctx context.Context, apiKey, username string, gameID int) ([]models.AchievementRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.GameAchievements(ctx, apiKey, username, gameID)
}

func (c *Core) GameTimes(ctx context.Context, apiKey, username string, gameID int) ([]models.LeaderboardTimeRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.GameTimes(ctx, apiKey, username, gameID)
}

func (c *Core) NowPlaying(ctx context.Context, apiKey, username string, windowSeconds int) (models.NowPlayingInfo, error) {
	if err := checkKey(apiKey); err != nil {
		return models.NowPlayingInfo{}, err
	}
	return c.agg.NowPlaying(ctx, apiKey, username, windowSeconds)
}

func (c *Core) CompareGameAchievements(ctx context.Context, apiKey, me, them string, gameID int) ([]models.AchievementComparisonRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.CompareGameAchievements(ctx, apiKey, me, them, gameID)
}

func (c *Core) CompareGameTimes(ctx context.Context, apiKey, me, them string, gameID int) ([]models.LeaderboardTimeComparisonRow, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	return c.agg.CompareGameTimes(ctx, apiKey, me, them, gameID)
}

// BuildLeaderboard builds self's leaderboard over their stored friends.
func (c *Core) BuildLeaderboard(ctx context.Context, apiKey, self string, mode models.Mode, publish leaderboard.PublishFunc) (*leaderboard.Build, error) {
	if err := checkKey(apiKey); err != nil {
		return nil, err
	}
	self = models.CanonicalUsername(self)
	if self == "" {
		return nil, ErrUsernameRequired
	}
	friends, err := c.store.Friends(ctx, self)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(friends))
	for i, f := range friends {
		names[i] = f.Username
	}
	return c.board.Build(ctx, leaderboard.Request{
		APIKey:  apiKey,
		Self:    self,
		Friends: names,
		Mode:    mode,
	}, publish)
}
