// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package normalize

import (
	"testing"

	"github.com/goccy/go-json"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func TestAsList(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantLen int
		wantOK  bool
	}{
		{"bare array", `[{"a":1},{"a":2}]`, 2, true},
		{"empty array", `[]`, 0, true},
		{"wrapped Results", `{"Count":1,"Results":[{"a":1}]}`, 1, true},
		{"wrapped results", `{"results":[{"a":1},{"a":2},{"a":3}]}`, 3, true},
		{"plain object", `{"a":1}`, 0, false},
		{"string", `"nope"`, 0, false},
		{"null", `null`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := AsList(decode(t, tt.payload))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if len(items) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(items), tt.wantLen)
			}
		})
	}
}

func TestIsHardcore(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"HardcoreMode int", `{"HardcoreMode":1}`, true},
		{"hardcoreMode bool", `{"hardcoreMode":true}`, true},
		{"Hardcore string", `{"Hardcore":"1"}`, true},
		{"isHardcore", `{"isHardcore":true}`, true},
		{"HardcoreModeActive", `{"HardcoreModeActive":1}`, true},
		{"zero", `{"HardcoreMode":0}`, false},
		{"string zero", `{"HardcoreMode":"0"}`, false},
		{"false", `{"hardcore":false}`, false},
		{"absent", `{"Points":5}`, false},
		{"later alias wins when earlier is false", `{"HardcoreMode":0,"isHardcore":1}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, _ := Object(decode(t, tt.payload))
			if got := IsHardcore(obj); got != tt.want {
				t.Errorf("IsHardcore = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveSkipsNullAndUnconvertible(t *testing.T) {
	obj, _ := Object(decode(t, `{"Points":null,"points":"15","Title":{"x":1},"title":"Sonic"}`))

	if got := Int(obj, FieldPoints); got != 15 {
		t.Errorf("Int(points) = %d, want 15", got)
	}
	if got := String(obj, FieldTitle); got != "Sonic" {
		t.Errorf("String(title) = %q, want Sonic", got)
	}
	if got := Int(obj, FieldRank); got != 0 {
		t.Errorf("Int(rank) = %d, want 0 for missing field", got)
	}
	if got := String(obj, FieldConsoleName); got != "" {
		t.Errorf("String(console) = %q, want empty", got)
	}
}

func TestUnlockCasing(t *testing.T) {
	pascal := decode(t, `{"AchievementID":10,"GameID":3,"GameTitle":"Sonic","Date":"2024-03-05 10:00:00","HardcoreMode":1,"Points":25,"TrueRatio":60,"Title":"Fast","BadgeURL":"/b/1.png"}`)
	camel := decode(t, `{"achievementId":10,"gameId":3,"gameTitle":"Sonic","date":"2024-03-05 10:00:00","hardcoreMode":1,"points":25,"trueRatio":60,"title":"Fast","badgeUrl":"/b/1.png"}`)

	a, ok := Unlock(pascal, "alice")
	if !ok {
		t.Fatal("pascal payload rejected")
	}
	b, ok := Unlock(camel, "alice")
	if !ok {
		t.Fatal("camel payload rejected")
	}
	if a != b {
		t.Errorf("casing changed result:\n%+v\n%+v", a, b)
	}
	if a.Points != 25 || !a.Hardcore || a.TrueRatio != 60 || a.GameID != 3 {
		t.Errorf("unexpected unlock %+v", a)
	}
	if a.Username != "alice" {
		t.Errorf("Username = %q", a.Username)
	}
}

func TestUnlocksSkipsNonObjects(t *testing.T) {
	items, _ := AsList(decode(t, `[{"Points":5},"junk",null,{"Points":7}]`))
	got := Unlocks(items, "bob")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Points+got[1].Points != 12 {
		t.Errorf("points = %d + %d", got[0].Points, got[1].Points)
	}
}

func TestLeaderboardEntryNesting(t *testing.T) {
	nested := decode(t, `{"ID":7,"Title":"Green Hill","Format":"TIME","UserEntry":{"Score":4521,"FormattedScore":"0:45.21","Rank":3,"DateUpdated":"2024-03-01 12:00:00"}}`)
	flat := decode(t, `{"id":7,"title":"Green Hill","format":"TIME","score":4521,"formattedScore":"0:45.21","rank":3,"dateUpdated":"2024-03-01 12:00:00"}`)

	a, _ := LeaderboardEntry(nested, 3, "Sonic")
	b, _ := LeaderboardEntry(flat, 3, "Sonic")
	if a != b {
		t.Errorf("nested and flat differ:\n%+v\n%+v", a, b)
	}
	if a.LeaderboardID != 7 || a.Score != 4521 || a.Rank != 3 || a.GameTitle != "Sonic" {
		t.Errorf("unexpected row %+v", a)
	}
}

func TestUserSummary(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantName  string
		wantRetro int
		wantLast  string
	}{
		{
			name:      "flat with TotalTruePoints",
			payload:   `{"User":"Alice","TotalPoints":1200,"TotalTruePoints":3400,"TotalRetroPoints":1,"LastActivity":"2024-03-05 10:00:00"}`,
			wantName:  "Alice",
			wantRetro: 3400,
			wantLast:  "2024-03-05 10:00:00",
		},
		{
			name:      "nested user object",
			payload:   `{"user":{"username":"bob","totalPoints":10,"retroPoints":20,"lastActivity":{"timestamp":"2024-01-01 00:00:00"}}}`,
			wantName:  "bob",
			wantRetro: 20,
			wantLast:  "2024-01-01 00:00:00",
		},
		{
			name:      "retro from TotalRetroPoints when true points absent",
			payload:   `{"User":"carol","TotalRetroPoints":55}`,
			wantName:  "carol",
			wantRetro: 55,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, _ := Object(decode(t, tt.payload))
			got := UserSummary(obj, "fallback")
			if got.Username != tt.wantName {
				t.Errorf("Username = %q, want %q", got.Username, tt.wantName)
			}
			if got.RetroPoints != tt.wantRetro {
				t.Errorf("RetroPoints = %d, want %d", got.RetroPoints, tt.wantRetro)
			}
			if got.LastActivity != tt.wantLast {
				t.Errorf("LastActivity = %q, want %q", got.LastActivity, tt.wantLast)
			}
		})
	}
}

func TestHasUser(t *testing.T) {
	tests := []struct {
		payload string
		want    bool
	}{
		{`{}`, false},
		{`{"Status":"ok"}`, false},
		{`{"User":"alice"}`, true},
		{`{"user":{"username":"bob"}}`, true},
		{`{"ID":42}`, true},
	}
	for _, tt := range tests {
		obj, _ := Object(decode(t, tt.payload))
		if got := HasUser(obj); got != tt.want {
			t.Errorf("HasUser(%s) = %v, want %v", tt.payload, got, tt.want)
		}
	}
}

func TestGameProgress(t *testing.T) {
	payload := `{
		"ID": 3, "Title": "Sonic", "ConsoleName": "Genesis",
		"Achievements": {
			"12": {"ID": 12, "Title": "B", "Points": 10, "DisplayOrder": 2},
			"11": {"ID": 11, "Title": "A", "Points": 5, "DisplayOrder": 1, "DateEarned": "2024-01-01 00:00:00"},
			"13": {"ID": 13, "Title": "C", "Points": 25, "DisplayOrder": 2, "DateEarnedHardcore": "2024-02-01 00:00:00"}
		}
	}`
	obj, _ := Object(decode(t, payload))
	game, rows := GameProgress(obj, 0)

	if game.GameID != 3 || game.Title != "Sonic" {
		t.Errorf("game = %+v", game)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	wantOrder := []int{11, 12, 13}
	for i, id := range wantOrder {
		if rows[i].AchievementID != id {
			t.Errorf("rows[%d].AchievementID = %d, want %d", i, rows[i].AchievementID, id)
		}
	}
	if !rows[0].Earned || rows[0].EarnedHardcore {
		t.Errorf("row 11 earned flags = %v/%v", rows[0].Earned, rows[0].EarnedHardcore)
	}
	if rows[1].Earned {
		t.Error("row 12 should be unearned")
	}
	if !rows[2].Earned || !rows[2].EarnedHardcore {
		t.Errorf("row 13 earned flags = %v/%v", rows[2].Earned, rows[2].EarnedHardcore)
	}
}

func TestGameProgressListForm(t *testing.T) {
	obj, _ := Object(decode(t, `{"achievements":[{"id":2,"displayOrder":0},{"id":1,"displayOrder":0}]}`))
	_, rows := GameProgress(obj, 9)
	if len(rows) != 2 || rows[0].AchievementID != 1 {
		t.Fatalf("rows = %+v", rows)
	}
}
