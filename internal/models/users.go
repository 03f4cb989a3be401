// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package models holds the domain types shared by the aggregation pipeline,
// the view-model builders and the HTTP layer.
package models

import (
	"strings"
	"time"
)

// Mode selects which unlocks count toward a points total.
type Mode string

const (
	// ModeHardcore counts hardcore unlocks only. This is the default basis
	// for official totals.
	ModeHardcore Mode = "hc"

	// ModeAll counts hardcore and softcore unlocks.
	ModeAll Mode = "all"
)

// ParseMode returns the mode named by s. Empty input yields ModeHardcore.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeHardcore), "hardcore":
		return ModeHardcore, true
	case string(ModeAll):
		return ModeAll, true
	default:
		return "", false
	}
}

// CanonicalUsername returns the identity form of a username: whitespace
// stripped and lowercased. Usernames compare case-insensitively everywhere.
func CanonicalUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// UserSummary is the normalized upstream profile of a single user.
type UserSummary struct {
	Username       string    `json:"username"`
	TotalPoints    int       `json:"total_points"`
	RetroPoints    int       `json:"retro_points"`
	HardcorePoints int       `json:"hardcore_points"`
	SoftcorePoints int       `json:"softcore_points"`
	Rank           int       `json:"rank"`
	MemberSince    string    `json:"member_since,omitempty"`
	LastActivity   string    `json:"last_activity,omitempty"`
	CompletedGames int       `json:"completed_games"`
	RichPresence   string    `json:"rich_presence,omitempty"`
	UserPic        string    `json:"user_pic,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Friend is a persisted friend-list entry.
type Friend struct {
	Owner    string    `json:"owner"`
	Username string    `json:"username"`
	AddedAt  time.Time `json:"added_at"`
}
