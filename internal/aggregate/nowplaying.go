// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package aggregate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/models"
)

// Now-playing window bounds in seconds.
const (
	DefaultNowPlayingWindow = 120
	MinNowPlayingWindow     = 5
	MaxNowPlayingWindow     = 600
)

// Reasons reported when a user is not shown as playing.
const (
	ReasonNoRecentGames   = "no recently played games"
	ReasonUnknownLastSeen = "last played time unavailable"
	ReasonIdle            = "last activity outside window"
)

// ClampWindow maps window onto [MinNowPlayingWindow, MaxNowPlayingWindow].
// Zero selects def.
func ClampWindow(window, def int) int {
	if window == 0 {
		window = def
	}
	return max(MinNowPlayingWindow, min(MaxNowPlayingWindow, window))
}

// NowPlaying infers whether username is in a game right now from their most
// recently played game. Only that one game is considered. The lookup is
// cached for the now-playing TTL; activity is judged against the current
// time on every call.
func (a *Aggregator) NowPlaying(ctx context.Context, apiKey, username string, windowSeconds int) (models.NowPlayingInfo, error) {
	if err := checkKey(apiKey); err != nil {
		return models.NowPlayingInfo{}, err
	}
	window := ClampWindow(windowSeconds, a.opts.NowPlayingWindow)

	key := cache.GenerateKey("now-playing", keyParams{
		APIKey: apiKey, Username: models.CanonicalUsername(username),
	})
	latest, err := cache.GetOrLoad(a.cache, key, a.opts.NowPlayingTTL, func() ([]models.GameSummary, error) {
		games, err := a.src.RecentlyPlayedGames(ctx, apiKey, username, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("now playing for %s: %w", username, err)
		}
		if len(games) > 1 {
			games = games[:1]
		}
		return games, nil
	})
	if err != nil {
		return models.NowPlayingInfo{}, err
	}

	info := models.NowPlayingInfo{Username: username, Window: window}
	if len(latest) == 0 {
		info.Reason = ReasonNoRecentGames
		return info, nil
	}
	return InferNowPlaying(info, latest[0], a.now(), window), nil
}

// InferNowPlaying fills info from the most recent game g as seen at now.
func InferNowPlaying(info models.NowPlayingInfo, g models.GameSummary, now time.Time, window int) models.NowPlayingInfo {
	info.GameID = g.GameID
	info.Title = g.Title
	info.ConsoleName = g.ConsoleName
	info.ImageIcon = g.ImageIcon
	info.RichPresence = g.RichPresence
	info.LastPlayed = g.LastPlayed
	info.Window = window

	played, ok := parseUpstreamTime(g.LastPlayed)
	if !ok {
		info.Reason = ReasonUnknownLastSeen
		return info
	}
	age := int64(now.Sub(played) / time.Second)
	if age < 0 {
		age = 0
	}
	info.AgeSeconds = age
	info.IsActive = age <= int64(window)
	if !info.IsActive {
		info.Reason = ReasonIdle
	}
	return info
}

// upstreamLayouts are the zone-less forms the API uses. They are read as UTC.
var upstreamLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseUpstreamTime is the only place upstream timestamps are interpreted.
// Values with an explicit offset are honored; zone-less values are UTC.
func parseUpstreamTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	for _, layout := range upstreamLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
