// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package models

import "time"

// LeaderboardRow is one user's line in the comparative leaderboard.
// NowPlaying and DailyPoints stay nil until their enrichment wave lands.
type LeaderboardRow struct {
	Username         string          `json:"username"`
	IsSelf           bool            `json:"is_self"`
	Points           int             `json:"points"`
	DeltaVsYou       int             `json:"delta_vs_you"`
	UnlockCount      int             `json:"unlock_count"`
	NowPlaying       *NowPlayingInfo `json:"now_playing"`
	NowPlayingStatus string          `json:"now_playing_status,omitempty"`
	DailyPoints      *int            `json:"daily_points"`
}

// LeaderboardSnapshot is an immutable, fully rendered row set. Consumers
// replace their displayed snapshot with a newer one and never mutate it.
// Generation identifies the build; Version increases with every publish.
type LeaderboardSnapshot struct {
	Self       string           `json:"self"`
	Mode       Mode             `json:"mode"`
	Rows       []LeaderboardRow `json:"rows"`
	Wave       int              `json:"wave"`
	Generation uint64           `json:"generation"`
	Version    uint64           `json:"version"`
	Status     string           `json:"status,omitempty"`
	BuiltAt    time.Time        `json:"built_at"`
}

// Newer reports whether s should replace cur: a later build always wins,
// within one build the higher version wins.
func (s LeaderboardSnapshot) Newer(cur LeaderboardSnapshot) bool {
	if s.Generation != cur.Generation {
		return s.Generation > cur.Generation
	}
	return s.Version > cur.Version
}

// Clone returns a deep copy so callers can derive the next snapshot.
func (s LeaderboardSnapshot) Clone() LeaderboardSnapshot {
	out := s
	out.Rows = make([]LeaderboardRow, len(s.Rows))
	for i, r := range s.Rows {
		if r.NowPlaying != nil {
			np := *r.NowPlaying
			r.NowPlaying = &np
		}
		if r.DailyPoints != nil {
			dp := *r.DailyPoints
			r.DailyPoints = &dp
		}
		out.Rows[i] = r
	}
	return out
}
