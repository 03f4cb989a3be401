// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/normalize"
)

// Upstream endpoint names.
const (
	EndpointUserSummary             = "API_GetUserSummary.php"
	EndpointAchievementsBetween     = "API_GetAchievementsEarnedBetween.php"
	EndpointRecentAchievements      = "API_GetUserRecentAchievements.php"
	EndpointRecentlyPlayedGames     = "API_GetUserRecentlyPlayedGames.php"
	EndpointUserGameLeaderboards    = "API_GetUserGameLeaderboards.php"
	EndpointGameInfoAndUserProgress = "API_GetGameInfoAndUserProgress.php"
)

// DefaultLeaderboardCount is the number of per-game leaderboard entries
// requested for one user.
const DefaultLeaderboardCount = 200

// API exposes the upstream endpoints as typed, normalized calls.
type API struct {
	fetcher      Fetcher
	retries      int
	heavyRetries int
}

// NewAPI creates an API over f. The retry budgets come from cfg: heavy
// endpoints (recently played games, achievements between) get the larger one.
func NewAPI(f Fetcher, cfg *config.UpstreamConfig) *API {
	return &API{
		fetcher:      f,
		retries:      cfg.RateLimitRetries,
		heavyRetries: cfg.HeavyRateLimitRetries,
	}
}

func (a *API) fetchList(ctx context.Context, apiKey, endpoint string, params url.Values, opts FetchOptions) ([]any, error) {
	body, err := a.fetcher.Fetch(ctx, apiKey, endpoint, params, opts)
	if err != nil {
		return nil, err
	}
	if body == nil && len(opts.EmptyStatuses) > 0 {
		return []any{}, nil
	}
	items, ok := normalize.AsList(body)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T, want list", ErrUnexpectedShape, endpoint, body)
	}
	return items, nil
}

// UserSummary fetches a user profile. A payload without any user identity
// is ErrNotFound.
func (a *API) UserSummary(ctx context.Context, apiKey, username string) (models.UserSummary, error) {
	params := url.Values{"u": {username}}
	body, err := a.fetcher.Fetch(ctx, apiKey, EndpointUserSummary, params, FetchOptions{RateLimitRetries: a.retries})
	if err != nil {
		return models.UserSummary{}, err
	}
	obj, ok := normalize.Object(body)
	if !ok {
		return models.UserSummary{}, fmt.Errorf("%w: %s returned %T, want object", ErrUnexpectedShape, EndpointUserSummary, body)
	}
	if !normalize.HasUser(obj) {
		return models.UserSummary{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return normalize.UserSummary(obj, username), nil
}

// AchievementsBetween fetches every unlock of username in [from, to].
func (a *API) AchievementsBetween(ctx context.Context, apiKey, username string, from, to time.Time) ([]models.UnlockEvent, error) {
	params := url.Values{
		"u": {username},
		"f": {strconv.FormatInt(from.Unix(), 10)},
		"t": {strconv.FormatInt(to.Unix(), 10)},
	}
	items, err := a.fetchList(ctx, apiKey, EndpointAchievementsBetween, params, FetchOptions{RateLimitRetries: a.heavyRetries})
	if err != nil {
		return nil, err
	}
	return normalize.Unlocks(items, username), nil
}

// RecentAchievements fetches unlocks from the last minutes minutes.
func (a *API) RecentAchievements(ctx context.Context, apiKey, username string, minutes int) ([]models.UnlockEvent, error) {
	params := url.Values{
		"u": {username},
		"m": {strconv.Itoa(minutes)},
	}
	items, err := a.fetchList(ctx, apiKey, EndpointRecentAchievements, params, FetchOptions{RateLimitRetries: a.retries})
	if err != nil {
		return nil, err
	}
	return normalize.Unlocks(items, username), nil
}

// RecentlyPlayedGames fetches one page of recently played games.
func (a *API) RecentlyPlayedGames(ctx context.Context, apiKey, username string, count, offset int) ([]models.GameSummary, error) {
	params := url.Values{
		"u": {username},
		"c": {strconv.Itoa(count)},
		"o": {strconv.Itoa(offset)},
	}
	items, err := a.fetchList(ctx, apiKey, EndpointRecentlyPlayedGames, params, FetchOptions{RateLimitRetries: a.heavyRetries})
	if err != nil {
		return nil, err
	}
	return normalize.RecentGames(items), nil
}

// UserGameLeaderboards fetches the user's entries on one game's boards.
// HTTP 422 means the game has no boards or the user has no entries and
// yields an empty list.
func (a *API) UserGameLeaderboards(ctx context.Context, apiKey, username string, gameID int, gameTitle string) ([]models.LeaderboardTimeRow, error) {
	params := url.Values{
		"i": {strconv.Itoa(gameID)},
		"u": {username},
		"c": {strconv.Itoa(DefaultLeaderboardCount)},
	}
	opts := FetchOptions{
		RateLimitRetries: a.retries,
		EmptyStatuses:    []int{http.StatusUnprocessableEntity},
	}
	items, err := a.fetchList(ctx, apiKey, EndpointUserGameLeaderboards, params, opts)
	if err != nil {
		return nil, err
	}
	return normalize.LeaderboardEntries(items, gameID, gameTitle), nil
}

// GameProgress fetches a game's achievement set with the user's progress.
func (a *API) GameProgress(ctx context.Context, apiKey, username string, gameID int) (models.GameSummary, []models.AchievementRow, error) {
	params := url.Values{
		"g": {strconv.Itoa(gameID)},
		"u": {username},
	}
	body, err := a.fetcher.Fetch(ctx, apiKey, EndpointGameInfoAndUserProgress, params, FetchOptions{RateLimitRetries: a.retries})
	if err != nil {
		return models.GameSummary{}, nil, err
	}
	obj, ok := normalize.Object(body)
	if !ok {
		return models.GameSummary{}, nil, fmt.Errorf("%w: %s returned %T, want object", ErrUnexpectedShape, EndpointGameInfoAndUserProgress, body)
	}
	game, rows := normalize.GameProgress(obj, gameID)
	return game, rows, nil
}
