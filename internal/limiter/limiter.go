// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package limiter bounds in-flight upstream work per named pool.
//
// Admission is FIFO: semaphore.Weighted serves waiters in arrival order, so
// completing one item admits the oldest queued one. There is no priority and
// a started item always runs to completion; only a caller still waiting in
// the queue can leave it when its context ends.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/rivalry/internal/metrics"
)

// Pool names used across the service.
const (
	PoolLeaderboard      = "leaderboard"
	PoolGameLeaderboards = "game-leaderboards"
	PoolEnrichment       = "enrichment"
	PoolSnapshot         = "snapshot"
)

// Pool is one admission gate with a fixed maximum concurrency.
type Pool struct {
	name   string
	max    int64
	sem    *semaphore.Weighted
	active atomic.Int64
	peak   atomic.Int64
}

// NewPool creates a pool admitting at most max concurrent items. max below
// 1 is treated as 1.
func NewPool(name string, max int) *Pool {
	if max < 1 {
		max = 1
	}
	return &Pool{
		name: name,
		max:  int64(max),
		sem:  semaphore.NewWeighted(int64(max)),
	}
}

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Max returns the configured concurrency.
func (p *Pool) Max() int { return int(p.max) }

// Active returns the number of running items.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Peak returns the highest number of concurrently running items observed.
func (p *Pool) Peak() int { return int(p.peak.Load()) }

// ResetPeak clears the peak counter.
func (p *Pool) ResetPeak() { p.peak.Store(p.active.Load()) }

func (p *Pool) acquire(ctx context.Context) error {
	start := time.Now()
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("limiter %s: %w", p.name, err)
	}
	metrics.LimiterWaitDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())

	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	metrics.LimiterActive.WithLabelValues(p.name).Set(float64(n))
	metrics.LimiterPeak.WithLabelValues(p.name).Set(float64(p.peak.Load()))
	return nil
}

func (p *Pool) release() {
	n := p.active.Add(-1)
	metrics.LimiterActive.WithLabelValues(p.name).Set(float64(n))
	p.sem.Release(1)
}

// Do runs fn once admitted by pool. fn receives a context detached from the
// caller's cancellation so that a started item runs to completion.
func Do[T any](ctx context.Context, pool *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := pool.acquire(ctx); err != nil {
		return zero, err
	}
	defer pool.release()
	return fn(context.WithoutCancel(ctx))
}

// Run is Do for functions without a result.
func Run(ctx context.Context, pool *Pool, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, pool, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Set holds named pools created on first use.
type Set struct {
	mu         sync.Mutex
	pools      map[string]*Pool
	defaultMax int
}

// NewSet creates a set. sizes pre-sizes named pools; any other name gets
// defaultMax.
func NewSet(defaultMax int, sizes map[string]int) *Set {
	s := &Set{pools: make(map[string]*Pool), defaultMax: defaultMax}
	for name, max := range sizes {
		s.pools[name] = NewPool(name, max)
	}
	return s
}

// Pool returns the named pool, creating it with the default size if needed.
func (s *Set) Pool(name string) *Pool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[name]
	if !ok {
		p = NewPool(name, s.defaultMax)
		s.pools[name] = p
	}
	return p
}
