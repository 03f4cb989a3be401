// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package models

// GameSummary identifies a game. Lists of summaries are deduplicated by
// GameID with the first occurrence winning.
type GameSummary struct {
	GameID      int    `json:"game_id"`
	Title       string `json:"title"`
	ConsoleName string `json:"console_name,omitempty"`
	ImageIcon   string `json:"image_icon,omitempty"`

	// Populated for recently-played lists only.
	LastPlayed          string `json:"last_played,omitempty"`
	AchievementsTotal   int    `json:"achievements_total,omitempty"`
	NumAchieved         int    `json:"num_achieved,omitempty"`
	NumAchievedHardcore int    `json:"num_achieved_hardcore,omitempty"`
	RichPresence        string `json:"rich_presence,omitempty"`
}

// MergeGames concatenates lists and drops repeated game IDs, keeping the
// first occurrence and the original order.
func MergeGames(lists ...[]GameSummary) []GameSummary {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	seen := make(map[int]struct{}, total)
	merged := make([]GameSummary, 0, total)
	for _, l := range lists {
		for _, g := range l {
			if _, dup := seen[g.GameID]; dup {
				continue
			}
			seen[g.GameID] = struct{}{}
			merged = append(merged, g)
		}
	}
	return merged
}

// IntersectGames returns the games of a that also appear in b, in a's order,
// deduplicated by GameID.
func IntersectGames(a, b []GameSummary) []GameSummary {
	inB := make(map[int]struct{}, len(b))
	for _, g := range b {
		inB[g.GameID] = struct{}{}
	}
	shared := make([]GameSummary, 0)
	for _, g := range MergeGames(a) {
		if _, ok := inB[g.GameID]; ok {
			shared = append(shared, g)
		}
	}
	return shared
}

// NowPlayingInfo is the inferred "currently in a game" status of a user.
// GameID is zero when the user has no recently played game.
type NowPlayingInfo struct {
	Username     string `json:"username"`
	GameID       int    `json:"game_id,omitempty"`
	Title        string `json:"title,omitempty"`
	ConsoleName  string `json:"console_name,omitempty"`
	ImageIcon    string `json:"image_icon,omitempty"`
	RichPresence string `json:"rich_presence,omitempty"`
	LastPlayed   string `json:"last_played,omitempty"`
	AgeSeconds   int64  `json:"age_seconds"`
	IsActive     bool   `json:"is_active"`
	Window       int    `json:"window_seconds"`
	Reason       string `json:"reason,omitempty"`
}

// LeaderboardTimeRow is a user's entry on one per-game ranked board.
type LeaderboardTimeRow struct {
	LeaderboardID  int    `json:"leaderboard_id"`
	GameID         int    `json:"game_id"`
	GameTitle      string `json:"game_title,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Format         string `json:"format,omitempty"`
	Score          int64  `json:"score"`
	FormattedScore string `json:"formatted_score,omitempty"`
	Rank           int    `json:"rank"`
	DateUpdated    string `json:"date_updated,omitempty"`
}

// LeaderboardTimeComparisonRow joins one ranked board across two users.
type LeaderboardTimeComparisonRow struct {
	LeaderboardID int                 `json:"leaderboard_id"`
	Title         string              `json:"title"`
	Format        string              `json:"format,omitempty"`
	MeEntry       *LeaderboardTimeRow `json:"me_entry,omitempty"`
	ThemEntry     *LeaderboardTimeRow `json:"them_entry,omitempty"`
	Both          bool                `json:"both"`
}
