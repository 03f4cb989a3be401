// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package profile builds the profile/compare view between the viewing user
// ("me") and another user ("them"): the games they share, an expanded list
// of everything they played, lazily loaded per-game progress counts, and a
// full per-game comparison.
//
// A Session holds the state of one open profile view. Per-game counts are
// fetched at most once per session; concurrent requests for the same game
// share one in-flight call, and all count fetches of a session run in its
// own enrichment pool.
package profile

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/rivalry/internal/aggregate"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
)

// Defaults for list sizes and the enrichment pool.
const (
	DefaultSharedGamesCount = 60
	DefaultAllGamesCount    = 200
	DefaultEnrichmentLimit  = 2
)

// Source supplies games and comparisons. *aggregate.Aggregator implements it.
type Source interface {
	RecentGames(ctx context.Context, apiKey, username string, count int) ([]models.GameSummary, error)
	CompareGameAchievements(ctx context.Context, apiKey, me, them string, gameID int) ([]models.AchievementComparisonRow, error)
	CompareGameTimes(ctx context.Context, apiKey, me, them string, gameID int) ([]models.LeaderboardTimeComparisonRow, error)
}

// GameComparison is the detail view of one game. Achievements and times
// fail independently; a failed half carries its error text and no rows.
type GameComparison struct {
	GameID            int                                   `json:"game_id"`
	Achievements      []models.AchievementComparisonRow     `json:"achievements"`
	Times             []models.LeaderboardTimeComparisonRow `json:"times"`
	Counts            models.GameProgressCounts             `json:"counts"`
	AchievementsError string                                `json:"achievements_error,omitempty"`
	TimesError        string                                `json:"times_error,omitempty"`
}

// Session is one open profile view.
type Session struct {
	ID     string
	APIKey string
	Me     string
	Them   string

	src  Source
	opts Options
	pool *limiter.Pool

	mu       sync.Mutex
	games    []models.GameSummary
	counts   map[int]models.GameProgressCounts
	lastUsed time.Time

	flight singleflight.Group
}

func newSession(id, apiKey, me, them string, src Source, opts Options) *Session {
	return &Session{
		ID:     id,
		APIKey: apiKey,
		Me:     models.CanonicalUsername(me),
		Them:   models.CanonicalUsername(them),
		src:    src,
		opts:   opts,
		pool:   limiter.NewPool(limiter.PoolEnrichment, opts.EnrichmentLimit),
		counts: make(map[int]models.GameProgressCounts),
	}
}

// Games returns the list currently shown.
func (s *Session) Games() []models.GameSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GameSummary(nil), s.games...)
}

// SharedGames intersects both users' recently played lists and makes the
// result the shown list. Both lists are fetched in parallel; either failure
// fails the call.
func (s *Session) SharedGames(ctx context.Context) ([]models.GameSummary, error) {
	var mine, theirs []models.GameSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mine, err = s.src.RecentGames(gctx, s.APIKey, s.Me, s.opts.SharedGamesCount)
		return err
	})
	g.Go(func() error {
		var err error
		theirs, err = s.src.RecentGames(gctx, s.APIKey, s.Them, s.opts.SharedGamesCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("shared games of %s and %s: %w", s.Me, s.Them, err)
	}

	shared := models.IntersectGames(mine, theirs)
	s.mu.Lock()
	s.games = shared
	s.mu.Unlock()
	return append([]models.GameSummary(nil), shared...), nil
}

// LoadAll fetches up to the all-games count of their recently played games
// and appends them to the shown list. Entries already shown stay first and
// are never dropped.
func (s *Session) LoadAll(ctx context.Context) ([]models.GameSummary, error) {
	theirs, err := s.src.RecentGames(ctx, s.APIKey, s.Them, s.opts.AllGamesCount)
	if err != nil {
		return nil, fmt.Errorf("all games of %s: %w", s.Them, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = models.MergeGames(s.games, theirs)
	return append([]models.GameSummary(nil), s.games...), nil
}

// Counts returns the tile counts for gameID, fetching them on first use.
// Successful results are kept for the life of the session; failures are
// not, so a later call retries.
func (s *Session) Counts(ctx context.Context, gameID int) (models.GameProgressCounts, error) {
	s.mu.Lock()
	c, ok := s.counts[gameID]
	s.mu.Unlock()
	if ok {
		return c, nil
	}

	// The shared fetch outlives any one caller; each caller waits on its own
	// context.
	flight := s.flight.DoChan(strconv.Itoa(gameID), func() (any, error) {
		s.mu.Lock()
		c, ok := s.counts[gameID]
		s.mu.Unlock()
		if ok {
			return c, nil
		}

		rows, err := limiter.Do(context.WithoutCancel(ctx), s.pool, func(ctx context.Context) ([]models.AchievementComparisonRow, error) {
			return s.src.CompareGameAchievements(ctx, s.APIKey, s.Me, s.Them, gameID)
		})
		if err != nil {
			return models.GameProgressCounts{}, err
		}
		counts := aggregate.CountProgress(gameID, rows)
		s.mu.Lock()
		s.counts[gameID] = counts
		s.mu.Unlock()
		return counts, nil
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return models.GameProgressCounts{}, fmt.Errorf("progress of game %d: %w", gameID, res.Err)
		}
		return res.Val.(models.GameProgressCounts), nil
	case <-ctx.Done():
		return models.GameProgressCounts{}, fmt.Errorf("progress of game %d: %w", gameID, ctx.Err())
	}
}

// CompareGame builds the detail view of gameID. It returns an error only
// when both halves fail.
func (s *Session) CompareGame(ctx context.Context, gameID int) (GameComparison, error) {
	out := GameComparison{GameID: gameID}
	var achErr, timesErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Achievements, achErr = s.src.CompareGameAchievements(ctx, s.APIKey, s.Me, s.Them, gameID)
	}()
	go func() {
		defer wg.Done()
		out.Times, timesErr = s.src.CompareGameTimes(ctx, s.APIKey, s.Me, s.Them, gameID)
	}()
	wg.Wait()

	if achErr != nil {
		out.Achievements = []models.AchievementComparisonRow{}
		out.AchievementsError = achErr.Error()
		logging.Ctx(ctx).Warn().Err(achErr).Int("game_id", gameID).Msg("Achievement comparison failed")
	} else {
		out.Counts = aggregate.CountProgress(gameID, out.Achievements)
		s.mu.Lock()
		s.counts[gameID] = out.Counts
		s.mu.Unlock()
	}
	if timesErr != nil {
		out.Times = []models.LeaderboardTimeComparisonRow{}
		out.TimesError = timesErr.Error()
		logging.Ctx(ctx).Warn().Err(timesErr).Int("game_id", gameID).Msg("Leaderboard comparison failed")
	}

	if achErr != nil && timesErr != nil {
		return out, fmt.Errorf("compare game %d: %w", gameID, achErr)
	}
	return out, nil
}
