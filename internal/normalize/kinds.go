// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package normalize

import (
	"sort"
	"time"

	"github.com/tomtom215/rivalry/internal/models"
)

// Unlock normalizes one achievement-unlock item. ok is false when raw is not
// an object.
func Unlock(raw any, username string) (models.UnlockEvent, bool) {
	obj, ok := Object(raw)
	if !ok {
		return models.UnlockEvent{}, false
	}
	return models.UnlockEvent{
		Username:      username,
		AchievementID: Int(obj, FieldAchievementID),
		GameID:        Int(obj, FieldGameID),
		GameTitle:     String(obj, FieldGameTitle),
		ConsoleName:   String(obj, FieldConsoleName),
		Date:          String(obj, FieldDate),
		Hardcore:      IsHardcore(obj),
		Points:        Int(obj, FieldPoints),
		TrueRatio:     Float(obj, FieldTrueRatio),
		Title:         String(obj, FieldTitle),
		Description:   String(obj, FieldDescription),
		BadgeRef:      String(obj, FieldBadge),
	}, true
}

// Unlocks normalizes a list of unlock items, skipping non-object entries.
func Unlocks(items []any, username string) []models.UnlockEvent {
	out := make([]models.UnlockEvent, 0, len(items))
	for _, item := range items {
		if u, ok := Unlock(item, username); ok {
			out = append(out, u)
		}
	}
	return out
}

// RecentGame normalizes one recently-played-games item.
func RecentGame(raw any) (models.GameSummary, bool) {
	obj, ok := Object(raw)
	if !ok {
		return models.GameSummary{}, false
	}
	return models.GameSummary{
		GameID:              Int(obj, FieldGameID),
		Title:               String(obj, FieldTitle),
		ConsoleName:         String(obj, FieldConsoleName),
		ImageIcon:           String(obj, FieldImageIcon),
		LastPlayed:          String(obj, FieldLastPlayed),
		AchievementsTotal:   Int(obj, FieldAchievementsTotal),
		NumAchieved:         Int(obj, FieldNumAchieved),
		NumAchievedHardcore: Int(obj, FieldNumAchievedHardcore),
		RichPresence:        String(obj, FieldRichPresence),
	}, true
}

// RecentGames normalizes a list of recently played games.
func RecentGames(items []any) []models.GameSummary {
	out := make([]models.GameSummary, 0, len(items))
	for _, item := range items {
		if g, ok := RecentGame(item); ok {
			out = append(out, g)
		}
	}
	return out
}

// LeaderboardEntry normalizes one per-game leaderboard item. The user's
// entry may be nested under UserEntry/userEntry or flattened into the board.
func LeaderboardEntry(raw any, gameID int, gameTitle string) (models.LeaderboardTimeRow, bool) {
	obj, ok := Object(raw)
	if !ok {
		return models.LeaderboardTimeRow{}, false
	}
	entry, nested := Nested(obj, FieldUserEntry)
	if !nested {
		entry = obj
	}
	return models.LeaderboardTimeRow{
		LeaderboardID:  Int(obj, FieldLeaderboardID),
		GameID:         gameID,
		GameTitle:      gameTitle,
		Title:          String(obj, FieldTitle),
		Description:    String(obj, FieldDescription),
		Format:         String(obj, FieldFormat),
		Score:          Int64(entry, FieldScore),
		FormattedScore: String(entry, FieldFormattedScore),
		Rank:           Int(entry, FieldRank),
		DateUpdated:    String(entry, FieldDateUpdated),
	}, true
}

// LeaderboardEntries normalizes a list of per-game leaderboard items.
func LeaderboardEntries(items []any, gameID int, gameTitle string) []models.LeaderboardTimeRow {
	out := make([]models.LeaderboardTimeRow, 0, len(items))
	for _, item := range items {
		if row, ok := LeaderboardEntry(item, gameID, gameTitle); ok {
			out = append(out, row)
		}
	}
	return out
}

// UserSummary normalizes a user profile payload, nested or flat.
func UserSummary(obj map[string]any, fallbackName string) models.UserSummary {
	u := UserObject(obj)
	name := String(u, FieldUsername)
	if name == "" {
		name = String(obj, FieldUsername)
	}
	if name == "" {
		name = fallbackName
	}

	hardcore := Int(u, FieldHardcorePoints)
	softcore := Int(u, FieldSoftcorePoints)
	return models.UserSummary{
		Username:       name,
		TotalPoints:    Int(u, FieldTotalPoints),
		RetroPoints:    Int(u, FieldRetroPoints),
		HardcorePoints: hardcore,
		SoftcorePoints: softcore,
		Rank:           Int(u, FieldRank),
		MemberSince:    String(u, FieldMemberSince),
		LastActivity:   lastActivity(u),
		CompletedGames: Int(u, FieldCompletedGames),
		RichPresence:   String(u, FieldRichPresence),
		UserPic:        String(u, FieldUserPic),
		FetchedAt:      time.Now().UTC(),
	}
}

// lastActivity accepts either a timestamp string or an activity object
// carrying timestamp/lastupdate.
func lastActivity(u map[string]any) string {
	if s := String(u, FieldLastActivity); s != "" {
		return s
	}
	if act, ok := Nested(u, FieldLastActivity); ok {
		for _, key := range []string{"timestamp", "Timestamp", "lastupdate", "LastUpdate"} {
			if s, ok := act[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// HasUser reports whether a summary payload identifies an actual user. An
// empty object or one without any username or ID means the user is unknown.
func HasUser(obj map[string]any) bool {
	if len(obj) == 0 {
		return false
	}
	u := UserObject(obj)
	if String(u, FieldUsername) != "" || String(obj, FieldUsername) != "" {
		return true
	}
	_, hasID := lookup(u, []string{"ID", "id", "ULID", "ulid"}, toString)
	return hasID
}

// GameProgress normalizes a game-info-and-user-progress payload into the game
// summary and its achievements, ordered by display order then ID. The
// achievement set may arrive as an ID-keyed object or as a list.
func GameProgress(obj map[string]any, gameID int) (models.GameSummary, []models.AchievementRow) {
	game := models.GameSummary{
		GameID:      gameID,
		Title:       String(obj, FieldTitle),
		ConsoleName: String(obj, FieldConsoleName),
		ImageIcon:   String(obj, FieldImageIcon),
	}
	if game.GameID == 0 {
		id, _ := lookup(obj, []string{"ID", "id", "GameID", "gameId"}, toFloat)
		game.GameID = int(id)
	}

	var items []any
	if set, ok := Nested(obj, FieldAchievements); ok {
		for _, v := range set {
			items = append(items, v)
		}
	} else {
		items, _ = lookup(obj, Aliases[FieldAchievements], func(v any) ([]any, bool) {
			l, ok := v.([]any)
			return l, ok
		})
	}

	rows := make([]models.AchievementRow, 0, len(items))
	for _, item := range items {
		a, ok := Object(item)
		if !ok {
			continue
		}
		earned := String(a, FieldDateEarned)
		earnedHC := String(a, FieldDateEarnedHardcore)
		date := earnedHC
		if date == "" {
			date = earned
		}
		rows = append(rows, models.AchievementRow{
			AchievementID:  Int(a, FieldAchievementID),
			Title:          String(a, FieldTitle),
			Description:    String(a, FieldDescription),
			Points:         Int(a, FieldPoints),
			TrueRatio:      Float(a, FieldTrueRatio),
			BadgeRef:       String(a, FieldBadge),
			DisplayOrder:   Int(a, FieldDisplayOrder),
			Earned:         earned != "" || earnedHC != "",
			EarnedHardcore: earnedHC != "",
			DateEarned:     date,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DisplayOrder != rows[j].DisplayOrder {
			return rows[i].DisplayOrder < rows[j].DisplayOrder
		}
		return rows[i].AchievementID < rows[j].AchievementID
	})
	return game, rows
}
