// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/models"
)

type pageCall struct {
	count, offset int
}

// fakeSource is a scripted Source. Unset funcs return empty results.
type fakeSource struct {
	mu        sync.Mutex
	pageCalls []pageCall
	calls     map[string]int

	summary      func(username string) (models.UserSummary, error)
	between      func(username string, from, to time.Time) ([]models.UnlockEvent, error)
	recent       func(username string, minutes int) ([]models.UnlockEvent, error)
	played       func(username string, count, offset int) ([]models.GameSummary, error)
	leaderboards func(username string, gameID int) ([]models.LeaderboardTimeRow, error)
	progress     func(username string, gameID int) ([]models.AchievementRow, error)
}

func (f *fakeSource) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeSource) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) UserSummary(_ context.Context, _, username string) (models.UserSummary, error) {
	f.hit("summary")
	if f.summary == nil {
		return models.UserSummary{Username: username}, nil
	}
	return f.summary(username)
}

func (f *fakeSource) AchievementsBetween(_ context.Context, _, username string, from, to time.Time) ([]models.UnlockEvent, error) {
	f.hit("between")
	if f.between == nil {
		return nil, nil
	}
	return f.between(username, from, to)
}

func (f *fakeSource) RecentAchievements(_ context.Context, _, username string, minutes int) ([]models.UnlockEvent, error) {
	f.hit("recent")
	if f.recent == nil {
		return nil, nil
	}
	return f.recent(username, minutes)
}

func (f *fakeSource) RecentlyPlayedGames(_ context.Context, _, username string, count, offset int) ([]models.GameSummary, error) {
	f.hit("played")
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, pageCall{count, offset})
	f.mu.Unlock()
	if f.played == nil {
		return nil, nil
	}
	return f.played(username, count, offset)
}

func (f *fakeSource) UserGameLeaderboards(_ context.Context, _, username string, gameID int, _ string) ([]models.LeaderboardTimeRow, error) {
	f.hit("leaderboards")
	if f.leaderboards == nil {
		return nil, nil
	}
	return f.leaderboards(username, gameID)
}

func (f *fakeSource) GameProgress(_ context.Context, _, username string, gameID int) (models.GameSummary, []models.AchievementRow, error) {
	f.hit("progress")
	if f.progress == nil {
		return models.GameSummary{GameID: gameID}, nil, nil
	}
	rows, err := f.progress(username, gameID)
	return models.GameSummary{GameID: gameID}, rows, err
}

type fakeLedger struct {
	mu      sync.Mutex
	records []models.DailyPointsRecord
	err     error
}

func (l *fakeLedger) UpsertDailyPoints(_ context.Context, rec models.DailyPointsRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return l.err
}

// newTestAggregator wires src into a fresh cache and pool set with a fixed
// clock.
func newTestAggregator(t *testing.T, src Source, ledger Ledger, now time.Time) *Aggregator {
	t.Helper()
	c := cache.New("aggregate-test", time.Minute, time.Minute)
	t.Cleanup(c.Close)

	a := New(src, c, limiter.NewSet(2, nil), ledger, Options{
		Location:           time.UTC,
		TransientAttempts:  4,
		TransientBaseDelay: time.Millisecond,
	})
	a.now = func() time.Time { return now }
	return a
}

// fullPages returns a played func serving count games per page with ids
// starting at offset+1.
func fullPages(username string, count, offset int) ([]models.GameSummary, error) {
	games := make([]models.GameSummary, count)
	for i := range games {
		games[i] = models.GameSummary{GameID: offset + i + 1, Title: username}
	}
	return games, nil
}
