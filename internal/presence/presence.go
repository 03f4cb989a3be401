// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package presence tracks which users currently have the app open. Each
// open client heartbeats with a session id; a user is online while at
// least one of their sessions has been seen within the TTL.
package presence

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/rivalry/internal/metrics"
	"github.com/tomtom215/rivalry/internal/models"
)

// DefaultTTL is how long a heartbeat keeps a session alive.
const DefaultTTL = 15 * time.Second

// ErrNoUsername is returned by Heartbeat for an empty username.
var ErrNoUsername = errors.New("presence: username is required")

// Tracker records heartbeats. It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]map[string]time.Time
	now      func() time.Time
}

// New creates a Tracker. A non-positive ttl selects DefaultTTL.
func New(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:      ttl,
		sessions: make(map[string]map[string]time.Time),
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (t *Tracker) TTL() time.Duration { return t.ttl }

// Heartbeat marks sessionID of username as seen now. An empty sessionID
// starts a new session; the id in use is returned.
func (t *Tracker) Heartbeat(username, sessionID string) (string, error) {
	username = models.CanonicalUsername(username)
	if username == "" {
		return "", ErrNoUsername
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	byID := t.sessions[username]
	if byID == nil {
		byID = make(map[string]time.Time)
		t.sessions[username] = byID
	}
	byID[sessionID] = t.now()
	t.pruneLocked()
	return sessionID, nil
}

// Leave ends one session immediately.
func (t *Tracker) Leave(username, sessionID string) {
	username = models.CanonicalUsername(username)

	t.mu.Lock()
	defer t.mu.Unlock()

	if byID, ok := t.sessions[username]; ok {
		delete(byID, sessionID)
	}
	t.pruneLocked()
}

// IsOnline reports whether username has a fresh session.
func (t *Tracker) IsOnline(username string) bool {
	username = models.CanonicalUsername(username)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	return len(t.sessions[username]) > 0
}

// Status reports online state for each of usernames, keyed canonically.
func (t *Tracker) Status(usernames []string) map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	out := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		u = models.CanonicalUsername(u)
		if u == "" {
			continue
		}
		out[u] = len(t.sessions[u]) > 0
	}
	return out
}

// Online returns every online username, sorted.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked()
	users := make([]string, 0, len(t.sessions))
	for u := range t.sessions {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// pruneLocked drops stale sessions and users left without sessions.
func (t *Tracker) pruneLocked() {
	now := t.now()
	for user, byID := range t.sessions {
		for id, seen := range byID {
			if now.Sub(seen) > t.ttl {
				delete(byID, id)
			}
		}
		if len(byID) == 0 {
			delete(t.sessions, user)
		}
	}
	metrics.PresenceOnlineUsers.Set(float64(len(t.sessions)))
}
