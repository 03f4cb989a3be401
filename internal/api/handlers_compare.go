// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/profile"
)

type compareRequest struct {
	Me     string `query:"me" validate:"required,username"`
	Them   string `query:"them" validate:"required,username"`
	GameID int    `query:"gameID" validate:"gt=0"`
}

func compareParams(r *http.Request) compareRequest {
	return compareRequest{
		Me:     chi.URLParam(r, "me"),
		Them:   chi.URLParam(r, "them"),
		GameID: gameIDParam(r),
	}
}

// CompareAchievements handles GET /compare/{me}/{them}/games/{gameID}/achievements.
func (h *Handler) CompareAchievements(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := compareParams(r)
	if !validateRequest(w, &req) {
		return
	}

	rows, err := h.svc.CompareGameAchievements(r.Context(), h.apiKey(r), req.Me, req.Them, req.GameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, rows)
}

// CompareTimes handles GET /compare/{me}/{them}/games/{gameID}/times.
func (h *Handler) CompareTimes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := compareParams(r)
	if !validateRequest(w, &req) {
		return
	}

	rows, err := h.svc.CompareGameTimes(r.Context(), h.apiKey(r), req.Me, req.Them, req.GameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, rows)
}

type profileRequest struct {
	Me   string `query:"me" validate:"required,username"`
	Them string `query:"them" validate:"required,username"`
}

// gamesResponse is the body of the profile game list endpoints.
type gamesResponse struct {
	SessionID string               `json:"session_id"`
	Games     []models.GameSummary `json:"games"`
}

// profileSession resolves the caller's profile session. The session ID
// travels in the X-Profile-Session header and is echoed back.
func (h *Handler) profileSession(w http.ResponseWriter, r *http.Request) (*profile.Session, bool) {
	if h.profiles == nil {
		respondError(w, http.StatusServiceUnavailable, "PROFILE_UNAVAILABLE", "Profile sessions are not enabled", nil)
		return nil, false
	}
	req := profileRequest{Me: chi.URLParam(r, "me"), Them: chi.URLParam(r, "them")}
	if !validateRequest(w, &req) {
		return nil, false
	}
	apiKey := h.apiKey(r)
	if apiKey == "" {
		respondError(w, http.StatusUnauthorized, "API_KEY_REQUIRED", "API key required", nil)
		return nil, false
	}
	s := h.profiles.Session(r.Header.Get(profileSessionHeader), apiKey, req.Me, req.Them)
	w.Header().Set(profileSessionHeader, s.ID)
	return s, true
}

// SharedGames handles GET /compare/{me}/{them}/shared.
func (h *Handler) SharedGames(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := h.profileSession(w, r)
	if !ok {
		return
	}
	games, err := s.SharedGames(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, gamesResponse{SessionID: s.ID, Games: games})
}

// AllGames handles GET /compare/{me}/{them}/all.
func (h *Handler) AllGames(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s, ok := h.profileSession(w, r)
	if !ok {
		return
	}
	games, err := s.LoadAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, gamesResponse{SessionID: s.ID, Games: games})
}

// GameCounts handles GET /compare/{me}/{them}/games/{gameID}/counts.
func (h *Handler) GameCounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gameID := gameIDParam(r)
	if gameID <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "gameID must be greater than 0", nil)
		return
	}
	s, ok := h.profileSession(w, r)
	if !ok {
		return
	}
	counts, err := s.Counts(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, counts)
}

// CompareGame handles GET /compare/{me}/{them}/games/{gameID}. The
// achievement and time halves fail independently.
func (h *Handler) CompareGame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	gameID := gameIDParam(r)
	if gameID <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "gameID must be greater than 0", nil)
		return
	}
	s, ok := h.profileSession(w, r)
	if !ok {
		return
	}
	cmp, err := s.CompareGame(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, cmp)
}
