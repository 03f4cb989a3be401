// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package models

import "time"

// UnlockEvent records one achievement earned by a user.
type UnlockEvent struct {
	Username      string  `json:"username"`
	AchievementID int     `json:"achievement_id"`
	GameID        int     `json:"game_id"`
	GameTitle     string  `json:"game_title,omitempty"`
	ConsoleName   string  `json:"console_name,omitempty"`
	Date          string  `json:"date"`
	Hardcore      bool    `json:"hardcore"`
	Points        int     `json:"points"`
	TrueRatio     float64 `json:"true_ratio"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	BadgeRef      string  `json:"badge_ref,omitempty"`
}

// MonthlyPoints is the points total over a month (or explicit date range).
type MonthlyPoints struct {
	Username       string    `json:"username"`
	Mode           Mode      `json:"mode"`
	Points         int       `json:"points"`
	RetroPoints    float64   `json:"retro_points"`
	UnlockCount    int       `json:"unlock_count"`
	UnlockCountAll int       `json:"unlock_count_all"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
}

// DailyPoints is the points total since the start of the local calendar day.
type DailyPoints struct {
	Username       string `json:"username"`
	Mode           Mode   `json:"mode"`
	Day            string `json:"day"`
	Points         int    `json:"points"`
	UnlockCount    int    `json:"unlock_count"`
	UnlockCountAll int    `json:"unlock_count_all"`
}

// DailyPointsRecord is one row of the durable daily points ledger.
type DailyPointsRecord struct {
	Username  string    `json:"username"`
	Day       string    `json:"day"`
	Mode      Mode      `json:"mode"`
	Points    int       `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyHistory maps username to day key (YYYY-MM-DD) to points. Days without a
// record are absent and mean "unknown", never zero.
type DailyHistory map[string]map[string]int

// AchievementRow is one achievement of a game from a single user's view.
type AchievementRow struct {
	AchievementID  int     `json:"achievement_id"`
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	Points         int     `json:"points"`
	TrueRatio      float64 `json:"true_ratio"`
	BadgeRef       string  `json:"badge_ref,omitempty"`
	DisplayOrder   int     `json:"display_order"`
	Earned         bool    `json:"earned"`
	EarnedHardcore bool    `json:"earned_hardcore"`
	DateEarned     string  `json:"date_earned,omitempty"`
}

// ComparisonStatus classifies a joined comparison row.
type ComparisonStatus string

const (
	StatusBoth ComparisonStatus = "both"
	StatusYou  ComparisonStatus = "you"
	StatusThem ComparisonStatus = "them"
	StatusNone ComparisonStatus = "none"
)

// StatusFor derives the comparison status from the two earned flags.
func StatusFor(me, them bool) ComparisonStatus {
	switch {
	case me && them:
		return StatusBoth
	case me:
		return StatusYou
	case them:
		return StatusThem
	default:
		return StatusNone
	}
}

// AchievementComparisonRow joins one achievement across two users.
type AchievementComparisonRow struct {
	AchievementID int              `json:"achievement_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	Points        int              `json:"points"`
	BadgeRef      string           `json:"badge_ref,omitempty"`
	MeEarned      bool             `json:"me_earned"`
	ThemEarned    bool             `json:"them_earned"`
	Status        ComparisonStatus `json:"status"`
}

// GameProgressCounts is the per-tile enrichment shown on a shared game.
type GameProgressCounts struct {
	GameID      int `json:"game_id"`
	Total       int `json:"total"`
	MeEarned    int `json:"me_earned"`
	ThemEarned  int `json:"them_earned"`
	BothEarned  int `json:"both_earned"`
	TotalPoints int `json:"total_points"`
}
