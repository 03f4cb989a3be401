// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package presence

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/rivalry/internal/metrics"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	tr := New(0)
	tr.now = clock.Now
	return tr, clock
}

func TestHeartbeatAndExpiry(t *testing.T) {
	tr, clock := newTestTracker(t)

	sid, err := tr.Heartbeat("Alice", "")
	if err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}
	if sid == "" {
		t.Fatal("expected a generated session id")
	}
	if !tr.IsOnline("alice") {
		t.Error("alice should be online right after heartbeat")
	}

	clock.Advance(15 * time.Second)
	if !tr.IsOnline("alice") {
		t.Error("alice should still be online at exactly the TTL")
	}

	clock.Advance(time.Second)
	if tr.IsOnline("alice") {
		t.Error("alice should be offline after the TTL")
	}
	if online := tr.Online(); len(online) != 0 {
		t.Errorf("Online() = %v, want empty", online)
	}
}

func TestAnyFreshSessionKeepsUserOnline(t *testing.T) {
	tr, clock := newTestTracker(t)

	tabA, _ := tr.Heartbeat("bob", "tab-a")
	clock.Advance(10 * time.Second)
	if _, err := tr.Heartbeat("bob", "tab-b"); err != nil {
		t.Fatalf("Heartbeat() error = %v", err)
	}
	clock.Advance(10 * time.Second)

	// tab-a is stale, tab-b is 10s old.
	if !tr.IsOnline("bob") {
		t.Error("bob should be online through tab-b")
	}

	tr.Leave("bob", "tab-b")
	tr.Leave("bob", tabA)
	if tr.IsOnline("bob") {
		t.Error("bob should be offline after leaving every session")
	}
}

func TestStatusAndOnline(t *testing.T) {
	tr, _ := newTestTracker(t)
	for _, u := range []string{"carol", "alice"} {
		if _, err := tr.Heartbeat(u, ""); err != nil {
			t.Fatalf("Heartbeat(%s) error = %v", u, err)
		}
	}

	status := tr.Status([]string{"Alice", "dave", ""})
	if !status["alice"] || status["dave"] || len(status) != 2 {
		t.Errorf("Status() = %v", status)
	}

	online := tr.Online()
	if len(online) != 2 || online[0] != "alice" || online[1] != "carol" {
		t.Errorf("Online() = %v, want [alice carol]", online)
	}
	if got := testutil.ToFloat64(metrics.PresenceOnlineUsers); got != 2 {
		t.Errorf("presence gauge = %v, want 2", got)
	}
}

func TestHeartbeatRequiresUsername(t *testing.T) {
	tr, _ := newTestTracker(t)
	if _, err := tr.Heartbeat("  ", "x"); !errors.Is(err, ErrNoUsername) {
		t.Errorf("err = %v, want ErrNoUsername", err)
	}
}
