// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package leaderboard builds the comparative leaderboard view in three waves
// over one evolving row set:
//
//  1. Monthly points for self and every friend, fetched in parallel. Any
//     failure fails the build. Rows are ranked and published at once.
//  2. Now-playing per user, each with its own short retry loop on rate
//     limiting. Retry progress is shown in the row.
//  3. Daily points per user, recorded into the daily history store.
//
// Waves 2 and 3 run concurrently in the background after wave 1. Every
// change publishes a new immutable snapshot; rows are copied on write and
// versions only increase.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
)

// Placeholder texts shown in the now-playing column.
const (
	StatusLoading   = "Loading..."
	retryingFormat  = "Retrying (%d/%d)..."
	bannerFormat    = "Could not load leaderboard: %v"
	defaultAttempts = 4
)

// Source supplies the per-user figures. *aggregate.Aggregator implements it.
type Source interface {
	MonthlyPoints(ctx context.Context, apiKey, username string, mode models.Mode, from, to string) (models.MonthlyPoints, error)
	DailyPoints(ctx context.Context, apiKey, username string, mode models.Mode) (models.DailyPoints, error)
	NowPlaying(ctx context.Context, apiKey, username string, windowSeconds int) (models.NowPlayingInfo, error)
}

// History is the client daily history store wave 3 records into.
type History interface {
	Record(ctx context.Context, username string, mode models.Mode, day string, points int) error
	Prune(ctx context.Context, now time.Time, retentionDays int, loc *time.Location) (int, error)
}

// PublishFunc receives every snapshot a build produces, in version order.
type PublishFunc func(models.LeaderboardSnapshot)

// Options tunes a Builder.
type Options struct {
	NowPlayingWindow     int
	NowPlayingAttempts   int
	NowPlayingRetryDelay time.Duration
	RetentionDays        int
	Location             *time.Location
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		NowPlayingWindow:     cfg.Leaderboard.NowPlayingWindow,
		NowPlayingAttempts:   cfg.Leaderboard.NowPlayingAttempts,
		NowPlayingRetryDelay: cfg.Leaderboard.NowPlayingRetryDelay,
		RetentionDays:        cfg.Leaderboard.HistoryRetentionDays,
		Location:             cfg.Server.Location(),
	}
}

// Request names the leaderboard to build.
type Request struct {
	APIKey  string
	Self    string
	Friends []string
	Mode    models.Mode
}

// users returns self followed by the distinct friends, canonicalized.
func (r Request) users() []string {
	self := models.CanonicalUsername(r.Self)
	seen := map[string]bool{self: true}
	users := []string{self}
	for _, f := range r.Friends {
		f = models.CanonicalUsername(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		users = append(users, f)
	}
	return users
}

// Builder runs leaderboard builds.
type Builder struct {
	src     Source
	pool    *limiter.Pool
	history History
	opts    Options

	generation atomic.Uint64
	version    atomic.Uint64
	now        func() time.Time
}

// NewBuilder creates a Builder. Wave 1 fan-out runs in the leaderboard pool
// of pools. history may be nil.
func NewBuilder(src Source, pools *limiter.Set, history History, opts Options) *Builder {
	if opts.NowPlayingAttempts < 1 {
		opts.NowPlayingAttempts = defaultAttempts
	}
	if opts.NowPlayingRetryDelay <= 0 {
		opts.NowPlayingRetryDelay = time.Second
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Builder{
		src:     src,
		pool:    pools.Pool(limiter.PoolLeaderboard),
		history: history,
		opts:    opts,
		now:     time.Now,
	}
}

// Build runs wave 1 and returns once its snapshot is published. Waves 2 and
// 3 continue in the background and are not cancelled by ctx; use
// Build.Wait to block until they finish.
//
// When wave 1 fails a snapshot carrying a status banner is published and
// the error is returned together with the (finished) build.
func (b *Builder) Build(ctx context.Context, req Request, publish PublishFunc) (*Build, error) {
	if publish == nil {
		publish = func(models.LeaderboardSnapshot) {}
	}
	build := &Build{
		builder: b,
		publish: publish,
		done:    make(chan struct{}),
		snap: models.LeaderboardSnapshot{
			Self:       models.CanonicalUsername(req.Self),
			Mode:       req.Mode,
			Generation: b.generation.Add(1),
			Rows:       []models.LeaderboardRow{},
		},
	}

	start := time.Now()
	rows, err := b.wave1(ctx, req)
	metrics.RecordWave(1, time.Since(start))
	if err != nil {
		metrics.LeaderboardBuilds.WithLabelValues("failed").Inc()
		build.update(1, func(s *models.LeaderboardSnapshot) {
			s.Status = fmt.Sprintf(bannerFormat, err)
		})
		close(build.done)
		return build, err
	}
	metrics.LeaderboardBuilds.WithLabelValues("ok").Inc()
	build.update(1, func(s *models.LeaderboardSnapshot) { s.Rows = rows })

	bg := context.WithoutCancel(ctx)
	users := req.users()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		b.wave2(bg, req, users, build)
		metrics.RecordWave(2, time.Since(start))
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		b.wave3(bg, req, users, build)
		metrics.RecordWave(3, time.Since(start))
	}()
	go func() {
		wg.Wait()
		close(build.done)
	}()

	return build, nil
}

// wave1 fetches monthly points for every user; any failure fails the wave.
func (b *Builder) wave1(ctx context.Context, req Request) ([]models.LeaderboardRow, error) {
	users := req.users()
	points := make([]models.MonthlyPoints, len(users))

	g, gctx := errgroup.WithContext(ctx)
	for i, u := range users {
		g.Go(func() error {
			mp, err := limiter.Do(gctx, b.pool, func(ctx context.Context) (models.MonthlyPoints, error) {
				return b.src.MonthlyPoints(ctx, req.APIKey, u, req.Mode, "", "")
			})
			if err != nil {
				return err
			}
			points[i] = mp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return RankRows(users[0], users, points), nil
}

// RankRows builds rows from monthly points (parallel to users), computes the
// delta against self and sorts by points descending, then username.
func RankRows(self string, users []string, points []models.MonthlyPoints) []models.LeaderboardRow {
	selfPoints := 0
	for i, u := range users {
		if u == self {
			selfPoints = points[i].Points
		}
	}

	rows := make([]models.LeaderboardRow, len(users))
	for i, u := range users {
		rows[i] = models.LeaderboardRow{
			Username:         u,
			IsSelf:           u == self,
			Points:           points[i].Points,
			DeltaVsYou:       points[i].Points - selfPoints,
			UnlockCount:      points[i].UnlockCount,
			NowPlayingStatus: StatusLoading,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Username < rows[j].Username
	})
	return rows
}

func (b *Builder) nextVersion() uint64 {
	return b.version.Add(1)
}

// Build is one running leaderboard build.
type Build struct {
	builder *Builder
	publish PublishFunc
	done    chan struct{}

	mu   sync.Mutex
	snap models.LeaderboardSnapshot
}

// Latest returns the most recently published snapshot.
func (bd *Build) Latest() models.LeaderboardSnapshot {
	bd.mu.Lock()
	defer bd.mu.Unlock()
	return bd.snap
}

// Done is closed when every wave has finished.
func (bd *Build) Done() <-chan struct{} {
	return bd.done
}

// Wait blocks until every wave has finished or ctx ends, then returns the
// latest snapshot.
func (bd *Build) Wait(ctx context.Context) (models.LeaderboardSnapshot, error) {
	select {
	case <-bd.done:
		return bd.Latest(), nil
	case <-ctx.Done():
		return bd.Latest(), ctx.Err()
	}
}

// update derives a new snapshot from the current one and publishes it.
// Publishing happens under the lock so subscribers see versions in order.
func (bd *Build) update(wave int, mutate func(*models.LeaderboardSnapshot)) {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	next := bd.snap.Clone()
	mutate(&next)
	if wave > next.Wave {
		next.Wave = wave
	}
	next.Version = bd.builder.nextVersion()
	next.BuiltAt = bd.builder.now()
	bd.snap = next
	bd.publish(next)
}

// updateRow applies mutate to username's row, if present.
func (bd *Build) updateRow(wave int, username string, mutate func(*models.LeaderboardRow)) {
	bd.update(wave, func(s *models.LeaderboardSnapshot) {
		for i := range s.Rows {
			if s.Rows[i].Username == username {
				mutate(&s.Rows[i])
				return
			}
		}
	})
}

func logWave(ctx context.Context, wave int, username string, err error) {
	logging.Ctx(ctx).Warn().Err(err).
		Int("wave", wave).
		Str("username", username).
		Msg("Leaderboard enrichment failed")
}
