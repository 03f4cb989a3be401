// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package normalize maps the upstream API's heterogeneous payloads
// (PascalCase and camelCase keys, nested or flat user objects, lists wrapped
// in Results) onto the stable types in internal/models.
//
// Every logical field is resolved through an ordered alias table: aliases
// are tried left to right and the first value that is present, non-null and
// convertible wins. Unresolved numbers are 0 and unresolved strings "".
// Nothing here returns an error for a missing optional field.
package normalize

// Field names a logical field independent of upstream casing.
type Field string

const (
	FieldUsername            Field = "username"
	FieldAchievementID       Field = "achievement_id"
	FieldGameID              Field = "game_id"
	FieldGameTitle           Field = "game_title"
	FieldConsoleName         Field = "console_name"
	FieldDate                Field = "date"
	FieldPoints              Field = "points"
	FieldTrueRatio           Field = "true_ratio"
	FieldTitle               Field = "title"
	FieldDescription         Field = "description"
	FieldBadge               Field = "badge"
	FieldImageIcon           Field = "image_icon"
	FieldLastPlayed          Field = "last_played"
	FieldRichPresence        Field = "rich_presence"
	FieldAchievementsTotal   Field = "achievements_total"
	FieldNumAchieved         Field = "num_achieved"
	FieldNumAchievedHardcore Field = "num_achieved_hardcore"
	FieldLeaderboardID       Field = "leaderboard_id"
	FieldFormat              Field = "format"
	FieldScore               Field = "score"
	FieldFormattedScore      Field = "formatted_score"
	FieldRank                Field = "rank"
	FieldDateUpdated         Field = "date_updated"
	FieldUserEntry           Field = "user_entry"
	FieldTotalPoints         Field = "total_points"
	FieldRetroPoints         Field = "retro_points"
	FieldHardcorePoints      Field = "hardcore_points"
	FieldSoftcorePoints      Field = "softcore_points"
	FieldMemberSince         Field = "member_since"
	FieldLastActivity        Field = "last_activity"
	FieldCompletedGames      Field = "completed_games"
	FieldUserPic             Field = "user_pic"
	FieldDateEarned          Field = "date_earned"
	FieldDateEarnedHardcore  Field = "date_earned_hardcore"
	FieldDisplayOrder        Field = "display_order"
	FieldAchievements        Field = "achievements"
)

// Aliases is the ordered source-key table for every logical field.
var Aliases = map[Field][]string{
	FieldUsername:            {"User", "user", "Username", "username", "UserName", "userName"},
	FieldAchievementID:       {"AchievementID", "achievementId", "AchievementId", "ID", "id"},
	FieldGameID:              {"GameID", "gameId", "GameId"},
	FieldGameTitle:           {"GameTitle", "gameTitle"},
	FieldConsoleName:         {"ConsoleName", "consoleName"},
	FieldDate:                {"Date", "date", "DateAwarded", "dateAwarded", "DateEarned", "dateEarned"},
	FieldPoints:              {"Points", "points"},
	FieldTrueRatio:           {"TrueRatio", "trueRatio", "RetroPoints", "retroPoints"},
	FieldTitle:               {"Title", "title"},
	FieldDescription:         {"Description", "description"},
	FieldBadge:               {"BadgeURL", "badgeUrl", "BadgeName", "badgeName"},
	FieldImageIcon:           {"ImageIcon", "imageIcon", "GameIcon", "gameIcon"},
	FieldLastPlayed:          {"LastPlayed", "lastPlayed"},
	FieldRichPresence:        {"RichPresenceMsg", "richPresenceMsg", "RichPresence", "richPresence"},
	FieldAchievementsTotal:   {"AchievementsTotal", "achievementsTotal", "NumPossibleAchievements", "numPossibleAchievements", "NumAchievements", "numAchievements"},
	FieldNumAchieved:         {"NumAchieved", "numAchieved", "NumAwarded", "numAwarded", "NumAwardedToUser", "numAwardedToUser"},
	FieldNumAchievedHardcore: {"NumAchievedHardcore", "numAchievedHardcore", "NumAwardedHardcore", "numAwardedHardcore", "NumAwardedToUserHardcore", "numAwardedToUserHardcore"},
	FieldLeaderboardID:       {"LeaderboardID", "leaderboardId", "ID", "id"},
	FieldFormat:              {"Format", "format"},
	FieldScore:               {"Score", "score"},
	FieldFormattedScore:      {"FormattedScore", "formattedScore"},
	FieldRank:                {"Rank", "rank"},
	FieldDateUpdated:         {"DateUpdated", "dateUpdated", "DateSubmitted", "dateSubmitted"},
	FieldUserEntry:           {"UserEntry", "userEntry"},
	FieldTotalPoints:         {"TotalPoints", "totalPoints", "Points", "points"},
	// Three upstream field generations. The order is a compatibility shim,
	// not a documented precedence.
	FieldRetroPoints:        {"TotalTruePoints", "totalTruePoints", "TrueRatio", "trueRatio", "TotalRetroPoints", "totalRetroPoints", "RetroPoints", "retroPoints"},
	FieldHardcorePoints:     {"HardcorePoints", "hardcorePoints", "TotalPoints", "totalPoints"},
	FieldSoftcorePoints:     {"TotalSoftcorePoints", "totalSoftcorePoints", "SoftcorePoints", "softcorePoints"},
	FieldMemberSince:        {"MemberSince", "memberSince"},
	FieldLastActivity:       {"LastActivity", "lastActivity", "LastActivityAt", "lastActivityAt"},
	FieldCompletedGames:     {"CompletedGamesCount", "completedGamesCount", "TotalCompletedGames", "totalCompletedGames", "NumCompleted", "numCompleted"},
	FieldUserPic:            {"UserPic", "userPic"},
	FieldDateEarned:         {"DateEarned", "dateEarned"},
	FieldDateEarnedHardcore: {"DateEarnedHardcore", "dateEarnedHardcore"},
	FieldDisplayOrder:       {"DisplayOrder", "displayOrder"},
	FieldAchievements:       {"Achievements", "achievements"},
}

// hardcoreAliases are the boolean-ish keys that mark a hardcore unlock.
var hardcoreAliases = []string{
	"HardcoreMode", "hardcoreMode",
	"Hardcore", "hardcore",
	"IsHardcore", "isHardcore",
	"HardcoreModeActive", "hardcoreModeActive",
}

// userAliases are the keys under which a user object may be nested.
var userAliases = []string{"User", "user"}

// listAliases are the keys under which a list endpoint may wrap its items.
var listAliases = []string{"Results", "results"}
