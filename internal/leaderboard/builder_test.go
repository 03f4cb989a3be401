// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package leaderboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/upstream"
)

type fakeSource struct {
	points      map[string]int
	monthlyErr  error
	nowPlaying  func(username string, attempt int32) (models.NowPlayingInfo, error)
	dailyErr    map[string]error
	npCalls     sync.Map // username -> *atomic.Int32
	monthlyHits atomic.Int32
}

func (f *fakeSource) MonthlyPoints(_ context.Context, _, username string, mode models.Mode, _, _ string) (models.MonthlyPoints, error) {
	f.monthlyHits.Add(1)
	if f.monthlyErr != nil && username == "bob" {
		return models.MonthlyPoints{}, f.monthlyErr
	}
	return models.MonthlyPoints{Username: username, Mode: mode, Points: f.points[username], UnlockCount: f.points[username] / 5}, nil
}

func (f *fakeSource) DailyPoints(_ context.Context, _, username string, mode models.Mode) (models.DailyPoints, error) {
	if err := f.dailyErr[username]; err != nil {
		return models.DailyPoints{}, err
	}
	return models.DailyPoints{Username: username, Mode: mode, Day: "2024-03-15", Points: len(username)}, nil
}

func (f *fakeSource) NowPlaying(_ context.Context, _, username string, window int) (models.NowPlayingInfo, error) {
	c, _ := f.npCalls.LoadOrStore(username, &atomic.Int32{})
	attempt := c.(*atomic.Int32).Add(1)
	if f.nowPlaying != nil {
		return f.nowPlaying(username, attempt)
	}
	return models.NowPlayingInfo{Username: username, GameID: 1, Window: window}, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	records map[string]int
	pruned  int
}

func (h *fakeHistory) Record(_ context.Context, username string, _ models.Mode, day string, points int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.records == nil {
		h.records = map[string]int{}
	}
	h.records[username+"/"+day] = points
	return nil
}

func (h *fakeHistory) Prune(context.Context, time.Time, int, *time.Location) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruned++
	return 0, nil
}

// recorder collects published snapshots.
type recorder struct {
	mu    sync.Mutex
	snaps []models.LeaderboardSnapshot
}

func (r *recorder) publish(s models.LeaderboardSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []models.LeaderboardSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.LeaderboardSnapshot(nil), r.snaps...)
}

func newTestBuilder(src Source, history History) *Builder {
	return NewBuilder(src, limiter.NewSet(2, nil), history, Options{
		NowPlayingWindow:     120,
		NowPlayingAttempts:   4,
		NowPlayingRetryDelay: time.Millisecond,
		RetentionDays:        30,
		Location:             time.UTC,
	})
}

func waitBuild(t *testing.T, b *Build) models.LeaderboardSnapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := b.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	return snap
}

func rowFor(t *testing.T, s models.LeaderboardSnapshot, username string) models.LeaderboardRow {
	t.Helper()
	for _, r := range s.Rows {
		if r.Username == username {
			return r
		}
	}
	t.Fatalf("no row for %s in %+v", username, s.Rows)
	return models.LeaderboardRow{}
}

func TestBuildThreeWaves(t *testing.T) {
	src := &fakeSource{points: map[string]int{"me": 50, "bob": 80, "amy": 50, "cat": 10}}
	hist := &fakeHistory{}
	rec := &recorder{}
	b := newTestBuilder(src, hist)

	build, err := b.Build(context.Background(), Request{
		APIKey: "k", Self: "Me", Friends: []string{"bob", "AMY", "cat", "bob", "me"}, Mode: models.ModeHardcore,
	}, rec.publish)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	final := waitBuild(t, build)

	first := rec.all()[0]
	if first.Wave != 1 {
		t.Errorf("first snapshot wave = %d, want 1", first.Wave)
	}
	var order []string
	for _, r := range first.Rows {
		order = append(order, r.Username)
		if r.NowPlayingStatus != StatusLoading || r.NowPlaying != nil || r.DailyPoints != nil {
			t.Errorf("wave 1 row %s = %+v", r.Username, r)
		}
	}
	if strings.Join(order, ",") != "bob,amy,me,cat" {
		t.Errorf("order = %v, want bob,amy,me,cat", order)
	}
	if src.monthlyHits.Load() != 4 {
		t.Errorf("monthly fetches = %d, want 4", src.monthlyHits.Load())
	}

	bob := rowFor(t, final, "bob")
	if bob.DeltaVsYou != 30 || bob.IsSelf {
		t.Errorf("bob = %+v", bob)
	}
	if cat := rowFor(t, final, "cat"); cat.DeltaVsYou != -40 {
		t.Errorf("cat delta = %d, want -40", cat.DeltaVsYou)
	}
	if me := rowFor(t, final, "me"); !me.IsSelf || me.DeltaVsYou != 0 {
		t.Errorf("me = %+v", me)
	}

	for _, r := range final.Rows {
		if r.NowPlaying == nil || r.NowPlayingStatus != "" {
			t.Errorf("row %s now playing not attached: %+v", r.Username, r)
		}
		if r.DailyPoints == nil || *r.DailyPoints != len(r.Username) {
			t.Errorf("row %s daily points = %v", r.Username, r.DailyPoints)
		}
	}
	if final.Wave != 3 {
		t.Errorf("final wave = %d, want 3", final.Wave)
	}
	if len(hist.records) != 4 || hist.records["bob/2024-03-15"] != 3 || hist.pruned != 1 {
		t.Errorf("history = %v pruned=%d", hist.records, hist.pruned)
	}

	// The first snapshot was not mutated by later waves.
	if first.Rows[0].NowPlaying != nil || first.Rows[0].NowPlayingStatus != StatusLoading {
		t.Error("published snapshot was mutated")
	}
}

func TestBuildVersionsIncrease(t *testing.T) {
	src := &fakeSource{points: map[string]int{"me": 1, "a": 2, "b": 3}}
	rec := &recorder{}
	b := newTestBuilder(src, nil)

	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me", Friends: []string{"a", "b"}}, rec.publish)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	waitBuild(t, build)

	snaps := rec.all()
	// wave 1 + 3 now-playing + 3 daily + final wave 3 publish
	if len(snaps) != 8 {
		t.Errorf("published %d snapshots, want 8", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Version <= snaps[i-1].Version {
			t.Fatalf("version %d after %d", snaps[i].Version, snaps[i-1].Version)
		}
		if snaps[i].Generation != snaps[0].Generation {
			t.Fatalf("generation changed within one build")
		}
	}

	second, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s := waitBuild(t, second); s.Generation <= snaps[0].Generation || !s.Newer(snaps[len(snaps)-1]) {
		t.Errorf("second build snapshot %+v should supersede first", s)
	}
}

func TestBuildNowPlayingRetriesOnRateLimit(t *testing.T) {
	src := &fakeSource{
		points: map[string]int{"me": 1},
		nowPlaying: func(username string, attempt int32) (models.NowPlayingInfo, error) {
			if attempt < 3 {
				return models.NowPlayingInfo{}, upstream.ErrRateLimited
			}
			return models.NowPlayingInfo{Username: username, GameID: 9}, nil
		},
	}
	rec := &recorder{}
	b := newTestBuilder(src, nil)

	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me"}, rec.publish)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	final := waitBuild(t, build)

	var statuses []string
	for _, s := range rec.all() {
		statuses = append(statuses, s.Rows[0].NowPlayingStatus)
	}
	joined := strings.Join(statuses, "|")
	if !strings.Contains(joined, "Retrying (2/4)...") || !strings.Contains(joined, "Retrying (3/4)...") {
		t.Errorf("statuses = %v", statuses)
	}
	if strings.Contains(joined, "Retrying (4/4)...") {
		t.Errorf("unexpected fourth attempt: %v", statuses)
	}
	if np := final.Rows[0].NowPlaying; np == nil || np.GameID != 9 {
		t.Errorf("now playing = %+v", np)
	}
}

func TestBuildNowPlayingGivesUp(t *testing.T) {
	src := &fakeSource{
		points: map[string]int{"me": 1},
		nowPlaying: func(string, int32) (models.NowPlayingInfo, error) {
			return models.NowPlayingInfo{}, upstream.ErrRateLimited
		},
	}
	b := newTestBuilder(src, nil)

	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	final := waitBuild(t, build)

	row := final.Rows[0]
	if row.NowPlaying != nil || row.NowPlayingStatus != "" {
		t.Errorf("row = %+v, want empty now playing", row)
	}
	c, _ := src.npCalls.Load("me")
	if n := c.(*atomic.Int32).Load(); n != 4 {
		t.Errorf("now playing attempts = %d, want 4", n)
	}
}

func TestBuildNowPlayingDoesNotRetryOtherErrors(t *testing.T) {
	src := &fakeSource{
		points: map[string]int{"me": 1},
		nowPlaying: func(string, int32) (models.NowPlayingInfo, error) {
			return models.NowPlayingInfo{}, &upstream.UpstreamError{Status: 500}
		},
	}
	b := newTestBuilder(src, nil)

	build, _ := b.Build(context.Background(), Request{APIKey: "k", Self: "me"}, nil)
	waitBuild(t, build)

	c, _ := src.npCalls.Load("me")
	if n := c.(*atomic.Int32).Load(); n != 1 {
		t.Errorf("now playing attempts = %d, want 1", n)
	}
}

func TestBuildDailyFailureLeavesNil(t *testing.T) {
	src := &fakeSource{
		points:   map[string]int{"me": 1, "bob": 2},
		dailyErr: map[string]error{"bob": errors.New("boom")},
	}
	hist := &fakeHistory{}
	b := newTestBuilder(src, hist)

	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me", Friends: []string{"bob"}}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	final := waitBuild(t, build)

	if dp := rowFor(t, final, "bob").DailyPoints; dp != nil {
		t.Errorf("bob daily = %d, want nil", *dp)
	}
	if dp := rowFor(t, final, "me").DailyPoints; dp == nil {
		t.Error("me daily should be attached")
	}
	if _, ok := hist.records["bob/2024-03-15"]; ok {
		t.Error("failed user must not be recorded")
	}
}

func TestBuildWave1FailurePublishesBanner(t *testing.T) {
	src := &fakeSource{
		points:     map[string]int{"me": 1, "bob": 2},
		monthlyErr: upstream.ErrRateLimited,
	}
	rec := &recorder{}
	b := newTestBuilder(src, nil)

	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me", Friends: []string{"bob"}}, rec.publish)
	if !errors.Is(err, upstream.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	snaps := rec.all()
	if len(snaps) != 1 {
		t.Fatalf("published %d snapshots, want 1", len(snaps))
	}
	if !strings.HasPrefix(snaps[0].Status, "Could not load leaderboard") {
		t.Errorf("status = %q", snaps[0].Status)
	}
	select {
	case <-build.Done():
	default:
		t.Error("failed build should be done")
	}
}

func TestBuildSuccessHasNoBanner(t *testing.T) {
	b := newTestBuilder(&fakeSource{points: map[string]int{"me": 3}}, nil)
	build, err := b.Build(context.Background(), Request{APIKey: "k", Self: "me"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s := waitBuild(t, build); s.Status != "" {
		t.Errorf("status = %q, want empty", s.Status)
	}
}

func TestBuildBackgroundWavesSurviveCancel(t *testing.T) {
	b := newTestBuilder(&fakeSource{points: map[string]int{"me": 3}}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	build, err := b.Build(ctx, Request{APIKey: "k", Self: "me"}, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	cancel()

	final := waitBuild(t, build)
	if final.Rows[0].NowPlaying == nil || final.Rows[0].DailyPoints == nil {
		t.Errorf("background waves did not finish: %+v", final.Rows[0])
	}
}
