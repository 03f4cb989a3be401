// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package poller keeps one user's leaderboard warm. Every interval it starts
// a new build; snapshots from all builds funnel through one gate that keeps
// only the newest, so a slow wave from an old build can never overwrite a
// fresher leaderboard.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/rivalry/internal/leaderboard"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
)

// Builder starts leaderboard builds. *service.Core implements it.
type Builder interface {
	BuildLeaderboard(ctx context.Context, apiKey, self string, mode models.Mode, publish leaderboard.PublishFunc) (*leaderboard.Build, error)
}

// Broadcaster receives every snapshot the poller accepts.
type Broadcaster interface {
	BroadcastLeaderboard(snap models.LeaderboardSnapshot)
}

// Config configures a Poller.
type Config struct {
	APIKey   string
	Self     string
	Mode     models.Mode
	Interval time.Duration
}

// Poller rebuilds a leaderboard on a fixed interval.
type Poller struct {
	builder Builder
	out     Broadcaster
	cfg     Config

	mu     sync.RWMutex
	latest models.LeaderboardSnapshot
	have   bool
}

// New creates a poller. out may be nil.
func New(builder Builder, out Broadcaster, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeHardcore
	}
	cfg.Self = models.CanonicalUsername(cfg.Self)
	return &Poller{builder: builder, out: out, cfg: cfg}
}

// Self returns the user whose leaderboard is polled.
func (p *Poller) Self() string { return p.cfg.Self }

// Latest returns the newest accepted snapshot.
func (p *Poller) Latest() (models.LeaderboardSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.have
}

// accept is the publish callback shared by every build.
func (p *Poller) accept(snap models.LeaderboardSnapshot) {
	p.mu.Lock()
	if p.have && !snap.Newer(p.latest) {
		p.mu.Unlock()
		return
	}
	p.latest = snap
	p.have = true
	p.mu.Unlock()

	if p.out != nil {
		p.out.BroadcastLeaderboard(snap)
	}
}

// Refresh starts one build and returns after wave 1. The remaining waves
// keep publishing in the background.
func (p *Poller) Refresh(ctx context.Context) (*leaderboard.Build, error) {
	build, err := p.builder.BuildLeaderboard(ctx, p.cfg.APIKey, p.cfg.Self, p.cfg.Mode, p.accept)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("self", p.cfg.Self).Msg("Leaderboard poll failed")
	}
	return build, err
}

// Serve implements suture.Service. The first build runs immediately. Build
// failures are logged and retried on the next tick rather than returned, so
// the supervisor does not restart a poller for an upstream outage.
func (p *Poller) Serve(ctx context.Context) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logging.Ctx(ctx).Info().
		Str("self", p.cfg.Self).
		Str("mode", string(p.cfg.Mode)).
		Dur("interval", p.cfg.Interval).
		Msg("Leaderboard poller started")

	_, _ = p.Refresh(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = p.Refresh(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (p *Poller) String() string {
	return "leaderboard-poller"
}
