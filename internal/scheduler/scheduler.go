// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package scheduler runs the periodic daily points snapshot. One gocron
// duration job is registered per mode; each job runs in singleton mode so a
// slow pass is never overlapped by the next tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
)

// Snapshotter records today's points for every known user.
// *service.Core implements it.
type Snapshotter interface {
	SnapshotDailyPointsForAllKnownUsers(ctx context.Context, apiKey string, mode models.Mode) (int, error)
}

// Config configures the snapshot schedule.
type Config struct {
	APIKey   string
	Interval time.Duration
	Modes    []models.Mode

	// RunTimeout bounds one pass. Default: Interval.
	RunTimeout time.Duration
}

// ErrNotRunning is returned by Stop before Start.
var ErrNotRunning = errors.New("scheduler: not running")

// Scheduler owns the gocron scheduler.
type Scheduler struct {
	snap Snapshotter
	cfg  Config

	mu    sync.Mutex
	sched gocron.Scheduler
}

// New creates a scheduler. Modes defaults to hc.
func New(snap Snapshotter, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.Interval
	}
	if len(cfg.Modes) == 0 {
		cfg.Modes = []models.Mode{models.ModeHardcore}
	}
	return &Scheduler{snap: snap, cfg: cfg}
}

// Start registers one job per mode and starts them immediately. ctx scopes
// every run: once it is cancelled in-flight passes stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	for _, mode := range s.cfg.Modes {
		_, err := sched.NewJob(
			gocron.DurationJob(s.cfg.Interval),
			gocron.NewTask(func() { s.RunOnce(ctx, mode) }),
			gocron.WithName("daily-snapshot-"+string(mode)),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("schedule %s snapshot: %w", mode, err)
		}
	}

	sched.Start()
	s.sched = sched
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Int("modes", len(s.cfg.Modes)).
		Msg("Daily snapshot scheduler started")
	return nil
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return ErrNotRunning
	}
	err := s.sched.Shutdown()
	s.sched = nil
	return err
}

// RunOnce runs a single snapshot pass for mode and returns the number of
// users recorded. Errors are logged, never returned.
func (s *Scheduler) RunOnce(ctx context.Context, mode models.Mode) int {
	if ctx.Err() != nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(logging.ContextWithNewCorrelationID(ctx), s.cfg.RunTimeout)
	defer cancel()

	n, err := s.snap.SnapshotDailyPointsForAllKnownUsers(ctx, s.cfg.APIKey, mode)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("mode", string(mode)).Msg("Daily snapshot run failed")
		return 0
	}
	return n
}
