// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/rivalry/internal/models"
)

func playedAt(ago time.Duration) func(string, int, int) ([]models.GameSummary, error) {
	return func(string, int, int) ([]models.GameSummary, error) {
		return []models.GameSummary{{
			GameID:     42,
			Title:      "Super Metroid",
			LastPlayed: testNow.Add(-ago).UTC().Format("2006-01-02 15:04:05"),
		}}, nil
	}
}

func TestNowPlayingWindow(t *testing.T) {
	tests := []struct {
		name       string
		ago        time.Duration
		window     int
		wantActive bool
	}{
		{"90s inside 120s", 90 * time.Second, 120, true},
		{"150s outside 120s", 150 * time.Second, 120, false},
		{"boundary is active", 120 * time.Second, 120, true},
		{"window clamped up to 5", 4 * time.Second, 1, true},
		{"window clamped down to 600", 650 * time.Second, 9000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{played: playedAt(tt.ago)}
			a := newTestAggregator(t, src, nil, testNow)

			info, err := a.NowPlaying(context.Background(), testKey, "alice", tt.window)
			if err != nil {
				t.Fatalf("NowPlaying() error = %v", err)
			}
			if info.IsActive != tt.wantActive {
				t.Errorf("IsActive = %v, want %v (age %ds, window %d)", info.IsActive, tt.wantActive, info.AgeSeconds, info.Window)
			}
			if info.GameID != 42 || info.Title != "Super Metroid" {
				t.Errorf("game = %d %q", info.GameID, info.Title)
			}
			if info.AgeSeconds != int64(tt.ago/time.Second) {
				t.Errorf("AgeSeconds = %d, want %d", info.AgeSeconds, int64(tt.ago/time.Second))
			}
		})
	}
}

func TestNowPlayingNoGames(t *testing.T) {
	a := newTestAggregator(t, &fakeSource{}, nil, testNow)

	info, err := a.NowPlaying(context.Background(), testKey, "alice", 0)
	if err != nil {
		t.Fatalf("NowPlaying() error = %v", err)
	}
	if info.GameID != 0 || info.IsActive || info.Reason != ReasonNoRecentGames {
		t.Errorf("NowPlaying() = %+v", info)
	}
	if info.Window != DefaultNowPlayingWindow {
		t.Errorf("Window = %d, want default %d", info.Window, DefaultNowPlayingWindow)
	}
}

func TestNowPlayingRequestsOneGameAndCaches(t *testing.T) {
	src := &fakeSource{played: playedAt(10 * time.Second)}
	a := newTestAggregator(t, src, nil, testNow)

	for i := 0; i < 3; i++ {
		if _, err := a.NowPlaying(context.Background(), testKey, "alice", 120); err != nil {
			t.Fatalf("NowPlaying() error = %v", err)
		}
	}
	if len(src.pageCalls) != 1 || src.pageCalls[0] != (pageCall{1, 0}) {
		t.Errorf("page calls = %v, want one {1 0}", src.pageCalls)
	}
}

func TestInferNowPlayingUnparseable(t *testing.T) {
	info := InferNowPlaying(models.NowPlayingInfo{}, models.GameSummary{GameID: 1, LastPlayed: "yesterday"}, testNow, 120)
	if info.IsActive || info.Reason != ReasonUnknownLastSeen {
		t.Errorf("InferNowPlaying() = %+v", info)
	}
}

func TestParseUpstreamTime(t *testing.T) {
	want := time.Date(2024, 3, 15, 11, 58, 30, 0, time.UTC)
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"2024-03-15 11:58:30", true},
		{"2024-03-15T11:58:30", true},
		{"2024-03-15T11:58:30Z", true},
		{"2024-03-15T13:58:30+02:00", true},
		{"", false},
		{"not a date", false},
	}
	for _, tt := range tests {
		got, ok := parseUpstreamTime(tt.in)
		if ok != tt.wantOK {
			t.Errorf("parseUpstreamTime(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && !got.Equal(want) {
			t.Errorf("parseUpstreamTime(%q) = %v, want %v", tt.in, got, want)
		}
	}
}
