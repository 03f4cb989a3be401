// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package profile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/models"
)

// DefaultSessionIdle is how long an unused session is kept.
const DefaultSessionIdle = 30 * time.Minute

// Options tunes a Builder.
type Options struct {
	SharedGamesCount int
	AllGamesCount    int
	EnrichmentLimit  int
	SessionIdle      time.Duration
}

// OptionsFromConfig derives Options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SharedGamesCount: cfg.Leaderboard.SharedGamesCount,
		AllGamesCount:    cfg.Leaderboard.AllGamesCount,
		EnrichmentLimit:  cfg.Limits.Enrichment,
	}
}

// Builder hands out sessions and keeps them until they go idle.
type Builder struct {
	src  Source
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewBuilder creates a Builder.
func NewBuilder(src Source, opts Options) *Builder {
	if opts.SharedGamesCount <= 0 {
		opts.SharedGamesCount = DefaultSharedGamesCount
	}
	if opts.AllGamesCount <= 0 {
		opts.AllGamesCount = DefaultAllGamesCount
	}
	if opts.EnrichmentLimit <= 0 {
		opts.EnrichmentLimit = DefaultEnrichmentLimit
	}
	if opts.SessionIdle <= 0 {
		opts.SessionIdle = DefaultSessionIdle
	}
	return &Builder{
		src:      src,
		opts:     opts,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Session returns the session id for me viewing them, creating one when id
// is empty or unknown. A session is bound to its users and API key; an id
// presented with different ones starts a fresh session.
func (b *Builder) Session(id, apiKey, me, them string) *Session {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.pruneLocked(now)

	if s, ok := b.sessions[id]; ok && s.APIKey == apiKey &&
		s.Me == models.CanonicalUsername(me) && s.Them == models.CanonicalUsername(them) {
		s.touch(now)
		return s
	}

	s := newSession(uuid.NewString(), apiKey, me, them, b.src, b.opts)
	s.touch(now)
	b.sessions[s.ID] = s
	return s
}

// Len returns the number of live sessions.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked(b.now())
	return len(b.sessions)
}

func (b *Builder) pruneLocked(now time.Time) {
	for id, s := range b.sessions {
		if now.Sub(s.idleSince()) > b.opts.SessionIdle {
			delete(b.sessions, id)
		}
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}
