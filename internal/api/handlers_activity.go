// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rivalry/internal/aggregate"
)

type userRequest struct {
	Username string `query:"username" validate:"required,username"`
}

type recentAchievementsRequest struct {
	Username string `query:"username" validate:"required,username"`
	Minutes  int    `query:"minutes" validate:"min=1,max=43200"`
	Limit    int    `query:"limit" validate:"min=0,max=500"`
}

// RecentAchievements handles GET /users/{username}/recent/achievements.
func (h *Handler) RecentAchievements(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := recentAchievementsRequest{
		Username: chi.URLParam(r, "username"),
		Minutes:  getIntParam(r, "minutes", 60),
		Limit:    getIntParam(r, "limit", 50),
	}
	if !validateRequest(w, &req) {
		return
	}

	events, err := h.svc.RecentAchievements(r.Context(), h.apiKey(r), req.Username, req.Minutes, req.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, events)
}

type recentTimesRequest struct {
	Username string `query:"username" validate:"required,username"`
	Games    int    `query:"games" validate:"min=1,max=50"`
	Limit    int    `query:"limit" validate:"min=0,max=500"`
}

// RecentTimes handles GET /users/{username}/recent/times.
func (h *Handler) RecentTimes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := recentTimesRequest{
		Username: chi.URLParam(r, "username"),
		Games:    getIntParam(r, "games", 5),
		Limit:    getIntParam(r, "limit", 50),
	}
	if !validateRequest(w, &req) {
		return
	}

	rows, err := h.svc.RecentTimes(r.Context(), h.apiKey(r), req.Username, req.Games, req.Limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, rows)
}

type recentGamesRequest struct {
	Username string `query:"username" validate:"required,username"`
	Count    int    `query:"count" validate:"min=0,max=500"`
}

// RecentGames handles GET /users/{username}/recent/games.
func (h *Handler) RecentGames(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := recentGamesRequest{
		Username: chi.URLParam(r, "username"),
		Count:    getIntParam(r, "count", aggregate.RecentGamesPageSize),
	}
	if !validateRequest(w, &req) {
		return
	}

	games, err := h.svc.RecentGames(r.Context(), h.apiKey(r), req.Username, req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, games)
}

// UserSummary handles GET /users/{username}/summary.
func (h *Handler) UserSummary(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := userRequest{Username: chi.URLParam(r, "username")}
	if !validateRequest(w, &req) {
		return
	}

	summary, err := h.svc.UserSummary(r.Context(), h.apiKey(r), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, summary)
}

type nowPlayingRequest struct {
	Username string `query:"username" validate:"required,username"`
	Window   int    `query:"window" validate:"min=0,max=3600"`
}

// NowPlaying handles GET /users/{username}/now-playing. The window is
// clamped to [5,600] seconds by the aggregator.
func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := nowPlayingRequest{
		Username: chi.URLParam(r, "username"),
		Window:   getIntParam(r, "window", 0),
	}
	if !validateRequest(w, &req) {
		return
	}

	info, err := h.svc.NowPlaying(r.Context(), h.apiKey(r), req.Username, req.Window)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, info)
}

type gameRequest struct {
	Username string `query:"username" validate:"required,username"`
	GameID   int    `query:"gameID" validate:"gt=0"`
}

func gameIDParam(r *http.Request) int {
	id, err := strconv.Atoi(chi.URLParam(r, "gameID"))
	if err != nil {
		return 0
	}
	return id
}

// GameAchievements handles GET /users/{username}/games/{gameID}/achievements.
func (h *Handler) GameAchievements(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := gameRequest{Username: chi.URLParam(r, "username"), GameID: gameIDParam(r)}
	if !validateRequest(w, &req) {
		return
	}

	rows, err := h.svc.GameAchievements(r.Context(), h.apiKey(r), req.Username, req.GameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, rows)
}

// GameTimes handles GET /users/{username}/games/{gameID}/times.
func (h *Handler) GameTimes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := gameRequest{Username: chi.URLParam(r, "username"), GameID: gameIDParam(r)}
	if !validateRequest(w, &req) {
		return
	}

	rows, err := h.svc.GameTimes(r.Context(), h.apiKey(r), req.Username, req.GameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, rows)
}
