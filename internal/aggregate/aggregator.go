// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package aggregate turns raw upstream calls into the per-user figures the
// leaderboard and profile views need: points over a window, recent unlocks,
// recently played games, recent leaderboard times, now-playing status, and
// per-game comparisons between two users.
//
// Every result is memoized in the short-TTL cache under a key derived from
// the data kind, its parameters and the caller's API key. Errors are never
// cached, so a miss always falls through to a live fetch.
package aggregate

import (
	"context"
	"time"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/upstream"
)

// Source is the typed upstream surface the aggregator reads from.
// *upstream.API implements it.
type Source interface {
	UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error)
	AchievementsBetween(ctx context.Context, apiKey, username string, from, to time.Time) ([]models.UnlockEvent, error)
	RecentAchievements(ctx context.Context, apiKey, username string, minutes int) ([]models.UnlockEvent, error)
	RecentlyPlayedGames(ctx context.Context, apiKey, username string, count, offset int) ([]models.GameSummary, error)
	UserGameLeaderboards(ctx context.Context, apiKey, username string, gameID int, gameTitle string) ([]models.LeaderboardTimeRow, error)
	GameProgress(ctx context.Context, apiKey, username string, gameID int) (models.GameSummary, []models.AchievementRow, error)
}

var _ Source = (*upstream.API)(nil)

// Ledger receives daily points after they are computed.
type Ledger interface {
	UpsertDailyPoints(ctx context.Context, rec models.DailyPointsRecord) error
}

// Options tunes an Aggregator.
type Options struct {
	// Location defines calendar days and months.
	Location *time.Location

	// NowPlayingTTL is the cache lifetime of the most recent game lookup.
	NowPlayingTTL time.Duration

	// NowPlayingWindow is the default activity window in seconds.
	NowPlayingWindow int

	// TransientAttempts and TransientBaseDelay bound the retry of a
	// recently-played page after a transport failure.
	TransientAttempts  int
	TransientBaseDelay time.Duration
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Location:           cfg.Server.Location(),
		NowPlayingTTL:      cfg.Cache.NowPlayingTTL,
		NowPlayingWindow:   cfg.Leaderboard.NowPlayingWindow,
		TransientAttempts:  cfg.Upstream.TransientAttempts,
		TransientBaseDelay: cfg.Upstream.TransientBaseDelay,
	}
}

// Aggregator computes per-user figures from the upstream API.
type Aggregator struct {
	src    Source
	cache  cache.Cacher
	games  *limiter.Pool
	ledger Ledger
	opts   Options
	now    func() time.Time
}

// New creates an Aggregator. ledger may be nil, in which case daily points
// are not persisted. Per-game leaderboard fan-out runs in the
// game-leaderboards pool of pools.
func New(src Source, c cache.Cacher, pools *limiter.Set, ledger Ledger, opts Options) *Aggregator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.NowPlayingTTL <= 0 {
		opts.NowPlayingTTL = 30 * time.Second
	}
	if opts.NowPlayingWindow == 0 {
		opts.NowPlayingWindow = DefaultNowPlayingWindow
	}
	if opts.TransientAttempts < 1 {
		opts.TransientAttempts = 4
	}
	if opts.TransientBaseDelay <= 0 {
		opts.TransientBaseDelay = 500 * time.Millisecond
	}
	return &Aggregator{
		src:    src,
		cache:  c,
		games:  pools.Pool(limiter.PoolGameLeaderboards),
		ledger: ledger,
		opts:   opts,
		now:    time.Now,
	}
}

// Location returns the zone calendar windows are computed in.
func (a *Aggregator) Location() *time.Location {
	return a.opts.Location
}

// keyParams is hashed into every cache key. The API key is part of it so
// two callers never share results fetched with different credentials.
type keyParams struct {
	APIKey   string `json:"k"`
	Username string `json:"u,omitempty"`
	Other    string `json:"o,omitempty"`
	Mode     string `json:"m,omitempty"`
	From     string `json:"f,omitempty"`
	To       string `json:"t,omitempty"`
	N1       int    `json:"n1,omitempty"`
	N2       int    `json:"n2,omitempty"`
}

func checkKey(apiKey string) error {
	if apiKey == "" {
		return upstream.ErrMissingAPIKey
	}
	return nil
}
