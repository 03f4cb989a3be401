// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/upstream"
)

const testKey = "key"

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func mixedUnlocks(string, time.Time, time.Time) ([]models.UnlockEvent, error) {
	return []models.UnlockEvent{
		{AchievementID: 1, Points: 10, TrueRatio: 25, Hardcore: true},
		{AchievementID: 2, Points: 5, TrueRatio: 8, Hardcore: false},
	}, nil
}

func TestSumUnlocksByMode(t *testing.T) {
	unlocks, _ := mixedUnlocks("", time.Time{}, time.Time{})

	tests := []struct {
		mode       models.Mode
		wantPoints int
		wantCount  int
	}{
		{models.ModeHardcore, 10, 1},
		{models.ModeAll, 15, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := SumUnlocks(unlocks, tt.mode)
			if s.Points != tt.wantPoints || s.UnlockCount != tt.wantCount {
				t.Errorf("points=%d count=%d, want %d and %d", s.Points, s.UnlockCount, tt.wantPoints, tt.wantCount)
			}
			if s.UnlockCountAll != 2 {
				t.Errorf("UnlockCountAll = %d, want 2", s.UnlockCountAll)
			}
		})
	}
}

func TestMonthlyPoints(t *testing.T) {
	var gotFrom, gotTo time.Time
	src := &fakeSource{between: func(u string, from, to time.Time) ([]models.UnlockEvent, error) {
		gotFrom, gotTo = from, to
		return mixedUnlocks(u, from, to)
	}}
	a := newTestAggregator(t, src, nil, testNow)

	mp, err := a.MonthlyPoints(context.Background(), testKey, "alice", models.ModeHardcore, "", "")
	if err != nil {
		t.Fatalf("MonthlyPoints() error = %v", err)
	}
	if mp.Points != 10 || mp.RetroPoints != 25 || mp.UnlockCount != 1 || mp.UnlockCountAll != 2 {
		t.Errorf("MonthlyPoints() = %+v", mp)
	}
	if want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC); !gotFrom.Equal(want) {
		t.Errorf("from = %v, want %v", gotFrom, want)
	}
	if !gotTo.Equal(testNow) {
		t.Errorf("to = %v, want now", gotTo)
	}

	// Second call is served from cache.
	if _, err := a.MonthlyPoints(context.Background(), testKey, "Alice", models.ModeHardcore, "", ""); err != nil {
		t.Fatalf("MonthlyPoints() error = %v", err)
	}
	if n := src.count("between"); n != 1 {
		t.Errorf("upstream calls = %d, want 1", n)
	}

	// A different API key never shares the cached value.
	if _, err := a.MonthlyPoints(context.Background(), "other", "alice", models.ModeHardcore, "", ""); err != nil {
		t.Fatalf("MonthlyPoints() error = %v", err)
	}
	if n := src.count("between"); n != 2 {
		t.Errorf("upstream calls = %d, want 2", n)
	}
}

func TestMonthWindow(t *testing.T) {
	tests := []struct {
		name      string
		from, to  string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{"default", "", "", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), testNow, false},
		{"explicit", "2024-02-01", "2024-02-29", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), false},
		{"to capped at now", "2024-03-10", "2024-03-31", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), testNow, false},
		{"malformed", "Feb 1", "", time.Time{}, time.Time{}, true},
		{"reversed", "2024-03-10", "2024-03-01", time.Time{}, time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := MonthWindow(testNow, time.UTC, tt.from, tt.to)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("err = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("MonthWindow() error = %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("window = [%v, %v], want [%v, %v]", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestDailyPointsRecordsLedger(t *testing.T) {
	var gotFrom time.Time
	src := &fakeSource{between: func(u string, from, to time.Time) ([]models.UnlockEvent, error) {
		gotFrom = from
		return mixedUnlocks(u, from, to)
	}}
	ledger := &fakeLedger{}
	a := newTestAggregator(t, src, ledger, testNow)

	dp, err := a.DailyPoints(context.Background(), testKey, "alice", models.ModeAll)
	if err != nil {
		t.Fatalf("DailyPoints() error = %v", err)
	}
	if dp.Points != 15 || dp.UnlockCount != 2 || dp.Day != "2024-03-15" {
		t.Errorf("DailyPoints() = %+v", dp)
	}
	if want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC); !gotFrom.Equal(want) {
		t.Errorf("from = %v, want local midnight", gotFrom)
	}
	if len(ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(ledger.records))
	}
	rec := ledger.records[0]
	if rec.Username != "alice" || rec.Day != "2024-03-15" || rec.Mode != models.ModeAll || rec.Points != 15 {
		t.Errorf("ledger record = %+v", rec)
	}
}

func TestDailyPointsLedgerFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{between: mixedUnlocks}
	a := newTestAggregator(t, src, &fakeLedger{err: errors.New("disk full")}, testNow)

	dp, err := a.DailyPoints(context.Background(), testKey, "alice", models.ModeHardcore)
	if err != nil {
		t.Fatalf("DailyPoints() error = %v", err)
	}
	if dp.Points != 10 {
		t.Errorf("Points = %d, want 10", dp.Points)
	}
}

func TestRecordDailyPointsBypassesCache(t *testing.T) {
	src := &fakeSource{between: mixedUnlocks}
	ledger := &fakeLedger{}
	a := newTestAggregator(t, src, ledger, testNow)
	ctx := context.Background()

	if _, err := a.DailyPoints(ctx, testKey, "alice", models.ModeAll); err != nil {
		t.Fatalf("DailyPoints() error = %v", err)
	}
	if _, err := a.DailyPoints(ctx, testKey, "alice", models.ModeAll); err != nil {
		t.Fatalf("DailyPoints() error = %v", err)
	}
	if got := len(ledger.records); got != 1 {
		t.Fatalf("ledger records after cached reads = %d, want 1", got)
	}

	dp, err := a.RecordDailyPoints(ctx, testKey, "alice", models.ModeAll)
	if err != nil {
		t.Fatalf("RecordDailyPoints() error = %v", err)
	}
	if dp.Points != 15 {
		t.Errorf("Points = %d, want 15", dp.Points)
	}
	if got := len(ledger.records); got != 2 {
		t.Errorf("ledger records = %d, want 2", got)
	}
	if got := src.count("between"); got != 2 {
		t.Errorf("upstream fetches = %d, want 2", got)
	}

	ledger.err = errors.New("disk full")
	if _, err := a.RecordDailyPoints(ctx, testKey, "alice", models.ModeAll); err == nil {
		t.Error("RecordDailyPoints() should return the ledger error")
	}

	noLedger := newTestAggregator(t, src, nil, testNow)
	if _, err := noLedger.RecordDailyPoints(ctx, testKey, "alice", models.ModeAll); !errors.Is(err, ErrNoLedger) {
		t.Errorf("err = %v, want ErrNoLedger", err)
	}
}

func TestMissingAPIKeySkipsUpstream(t *testing.T) {
	src := &fakeSource{}
	a := newTestAggregator(t, src, nil, testNow)
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["monthly"] = a.MonthlyPoints(ctx, "", "alice", models.ModeHardcore, "", "")
	_, checks["daily"] = a.DailyPoints(ctx, "", "alice", models.ModeHardcore)
	_, checks["recent"] = a.RecentAchievements(ctx, "", "alice", 60, 10)
	_, checks["games"] = a.RecentGames(ctx, "", "alice", 10)
	_, checks["times"] = a.RecentTimes(ctx, "", "alice", 5, 10)
	_, checks["now"] = a.NowPlaying(ctx, "", "alice", 120)
	_, checks["summary"] = a.UserSummary(ctx, "", "alice")
	_, checks["achievements"] = a.GameAchievements(ctx, "", "alice", 1)
	_, checks["gametimes"] = a.GameTimes(ctx, "", "alice", 1)

	for name, err := range checks {
		if !errors.Is(err, upstream.ErrMissingAPIKey) {
			t.Errorf("%s: err = %v, want ErrMissingAPIKey", name, err)
		}
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.calls) != 0 {
		t.Errorf("upstream was called: %v", src.calls)
	}
}

func TestRecentAchievementsTrimsToLimit(t *testing.T) {
	src := &fakeSource{recent: func(u string, minutes int) ([]models.UnlockEvent, error) {
		if minutes != 60 {
			t.Errorf("minutes = %d, want 60", minutes)
		}
		return []models.UnlockEvent{{AchievementID: 1}, {AchievementID: 2, Hardcore: false}, {AchievementID: 3}}, nil
	}}
	a := newTestAggregator(t, src, nil, testNow)

	got, err := a.RecentAchievements(context.Background(), testKey, "alice", 60, 2)
	if err != nil {
		t.Fatalf("RecentAchievements() error = %v", err)
	}
	if len(got) != 2 || got[1].AchievementID != 2 {
		t.Errorf("RecentAchievements() = %+v", got)
	}
}

func TestRecentGamesPagination(t *testing.T) {
	src := &fakeSource{played: fullPages}
	a := newTestAggregator(t, src, nil, testNow)

	games, err := a.RecentGames(context.Background(), testKey, "alice", 120)
	if err != nil {
		t.Fatalf("RecentGames() error = %v", err)
	}
	if len(games) != 120 {
		t.Errorf("len = %d, want 120", len(games))
	}

	want := []pageCall{{50, 0}, {50, 50}, {20, 100}}
	if len(src.pageCalls) != len(want) {
		t.Fatalf("pages = %v, want %v", src.pageCalls, want)
	}
	for i := range want {
		if src.pageCalls[i] != want[i] {
			t.Errorf("page %d = %+v, want %+v", i, src.pageCalls[i], want[i])
		}
	}
}

func TestRecentGamesShortPageStops(t *testing.T) {
	src := &fakeSource{played: func(u string, count, offset int) ([]models.GameSummary, error) {
		if offset == 50 {
			return fullPages(u, 10, offset)
		}
		return fullPages(u, count, offset)
	}}
	a := newTestAggregator(t, src, nil, testNow)

	games, err := a.RecentGames(context.Background(), testKey, "alice", 200)
	if err != nil {
		t.Fatalf("RecentGames() error = %v", err)
	}
	if len(games) != 60 || len(src.pageCalls) != 2 {
		t.Errorf("games=%d pages=%d, want 60 and 2", len(games), len(src.pageCalls))
	}
}

func TestRecentGamesDeduplicates(t *testing.T) {
	src := &fakeSource{played: func(u string, count, offset int) ([]models.GameSummary, error) {
		if offset == 0 {
			return fullPages(u, count, 0)
		}
		// Second page overlaps the first by one game.
		return fullPages(u, count, offset-1)
	}}
	a := newTestAggregator(t, src, nil, testNow)

	games, err := a.RecentGames(context.Background(), testKey, "alice", 100)
	if err != nil {
		t.Fatalf("RecentGames() error = %v", err)
	}
	seen := map[int]bool{}
	for _, g := range games {
		if seen[g.GameID] {
			t.Fatalf("duplicate game %d", g.GameID)
		}
		seen[g.GameID] = true
	}
	if len(games) != 99 {
		t.Errorf("len = %d, want 99", len(games))
	}
}

func TestRecentGamesTransientRetry(t *testing.T) {
	var failures atomic.Int32
	src := &fakeSource{played: func(u string, count, offset int) ([]models.GameSummary, error) {
		if offset == 50 && failures.Add(1) <= 2 {
			return nil, &upstream.NetworkError{Endpoint: "played", Err: errors.New("connection reset")}
		}
		return fullPages(u, count, offset)
	}}
	a := newTestAggregator(t, src, nil, testNow)

	games, err := a.RecentGames(context.Background(), testKey, "alice", 100)
	if err != nil {
		t.Fatalf("RecentGames() error = %v", err)
	}
	if len(games) != 100 {
		t.Errorf("len = %d, want 100", len(games))
	}
	if n := src.count("played"); n != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 for the flaky page)", n)
	}
}

func TestRecentGamesTransientExhausted(t *testing.T) {
	src := &fakeSource{played: func(string, int, int) ([]models.GameSummary, error) {
		return nil, &upstream.NetworkError{Endpoint: "played", Err: errors.New("timeout")}
	}}
	a := newTestAggregator(t, src, nil, testNow)

	_, err := a.RecentGames(context.Background(), testKey, "alice", 10)
	if !errors.Is(err, upstream.ErrTransientNetwork) {
		t.Fatalf("err = %v, want ErrTransientNetwork", err)
	}
	if n := src.count("played"); n != 4 {
		t.Errorf("calls = %d, want 4", n)
	}

	// RecentTimes turns the same failure into an empty result.
	rows, err := a.RecentTimes(context.Background(), testKey, "alice", 10, 5)
	if err != nil || len(rows) != 0 {
		t.Errorf("RecentTimes() = %v, %v; want empty, nil", rows, err)
	}
}

func TestRecentTimesMergesAndSorts(t *testing.T) {
	src := &fakeSource{
		played: func(string, int, int) ([]models.GameSummary, error) {
			return []models.GameSummary{{GameID: 1, Title: "One"}, {GameID: 2, Title: "Two"}, {GameID: 3, Title: "Three"}}, nil
		},
		leaderboards: func(_ string, gameID int) ([]models.LeaderboardTimeRow, error) {
			switch gameID {
			case 1:
				return []models.LeaderboardTimeRow{
					{LeaderboardID: 10, GameID: 1, DateUpdated: "2024-03-01 10:00:00"},
					{LeaderboardID: 11, GameID: 1, DateUpdated: "garbage"},
				}, nil
			case 2:
				return nil, errors.New("boom")
			default:
				return []models.LeaderboardTimeRow{
					{LeaderboardID: 30, GameID: 3, DateUpdated: "2024-03-05T08:00:00Z"},
					{LeaderboardID: 31, GameID: 3, DateUpdated: "2024-02-01 00:00:00"},
				}, nil
			}
		},
	}
	a := newTestAggregator(t, src, nil, testNow)

	rows, err := a.RecentTimes(context.Background(), testKey, "alice", 3, 3)
	if err != nil {
		t.Fatalf("RecentTimes() error = %v", err)
	}
	var ids []int
	for _, r := range rows {
		ids = append(ids, r.LeaderboardID)
	}
	if fmt.Sprint(ids) != "[30 10 31]" {
		t.Errorf("order = %v, want [30 10 31]", ids)
	}
	if rows[0].GameTitle != "Three" {
		t.Errorf("GameTitle = %q, want Three", rows[0].GameTitle)
	}

	all, err := a.RecentTimes(context.Background(), testKey, "alice", 3, 0)
	if err != nil {
		t.Fatalf("RecentTimes() error = %v", err)
	}
	if len(all) != 4 || all[3].LeaderboardID != 11 {
		t.Errorf("unparseable date should sort last: %+v", all)
	}
}

func TestRecentTimesPropagatesNonTransient(t *testing.T) {
	src := &fakeSource{played: func(string, int, int) ([]models.GameSummary, error) {
		return nil, fmt.Errorf("listing: %w", upstream.ErrRateLimited)
	}}
	a := newTestAggregator(t, src, nil, testNow)

	if _, err := a.RecentTimes(context.Background(), testKey, "alice", 5, 5); !errors.Is(err, upstream.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

// TestRecentTimesUnprocessableIsEmpty runs the real client against a server
// that answers every per-game leaderboard request with 422.
func TestRecentTimesUnprocessableIsEmpty(t *testing.T) {
	var boards atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, upstream.EndpointRecentlyPlayedGames):
			w.Write([]byte(`[{"GameID":7,"Title":"Seven"},{"GameID":8,"Title":"Eight"}]`))
		case strings.HasSuffix(r.URL.Path, upstream.EndpointUserGameLeaderboards):
			boards.Add(1)
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"no leaderboards"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := &config.UpstreamConfig{
		BaseURL:            srv.URL,
		Timeout:            2 * time.Second,
		RateLimitRetries:   2,
		RateLimitBaseDelay: time.Millisecond,
		MaxRetryAfter:      10 * time.Millisecond,
	}
	api := upstream.NewAPI(upstream.NewClient(cfg), cfg)
	a := newTestAggregator(t, api, nil, testNow)

	rows, err := a.RecentTimes(context.Background(), testKey, "alice", 10, 10)
	if err != nil {
		t.Fatalf("RecentTimes() error = %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("rows = %#v, want empty non-nil", rows)
	}
	if n := boards.Load(); n != 2 {
		t.Errorf("leaderboard requests = %d, want 2", n)
	}
}

func TestGameTimesRejectsBadID(t *testing.T) {
	a := newTestAggregator(t, &fakeSource{}, nil, testNow)
	if _, err := a.GameTimes(context.Background(), testKey, "alice", 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	src := &fakeSource{summary: func(u string) (models.UserSummary, error) {
		if fail.Load() {
			return models.UserSummary{}, &upstream.UpstreamError{Status: 500}
		}
		return models.UserSummary{Username: u, TotalPoints: 42}, nil
	}}
	a := newTestAggregator(t, src, nil, testNow)

	if _, err := a.UserSummary(context.Background(), testKey, "alice"); err == nil {
		t.Fatal("expected error")
	}
	fail.Store(false)
	s, err := a.UserSummary(context.Background(), testKey, "alice")
	if err != nil || s.TotalPoints != 42 {
		t.Errorf("UserSummary() = %+v, %v", s, err)
	}
}
