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
)

type friendRequest struct {
	Owner  string `query:"owner" validate:"required,username"`
	Friend string `query:"username" validate:"required,username,nefield=Owner"`
}

// Friends handles GET /users/{username}/friends.
func (h *Handler) Friends(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := userRequest{Username: chi.URLParam(r, "username")}
	if !validateRequest(w, &req) {
		return
	}

	friends, err := h.svc.Friends(r.Context(), h.apiKey(r), req.Username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if friends == nil {
		friends = []models.Friend{}
	}
	respondData(w, r, start, friends)
}

// AddFriend handles POST /users/{username}/friends with body
// {"username": "..."}. The friend is verified upstream before it is stored.
func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var body struct {
		Username string `json:"username"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	req := friendRequest{
		Owner:  models.CanonicalUsername(chi.URLParam(r, "username")),
		Friend: models.CanonicalUsername(body.Username),
	}
	if !validateRequest(w, &req) {
		return
	}

	friend, err := h.svc.AddFriend(r.Context(), h.apiKey(r), req.Owner, req.Friend)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, friend)
}

// RemoveFriend handles DELETE /users/{username}/friends/{friend}.
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := friendRequest{
		Owner:  models.CanonicalUsername(chi.URLParam(r, "username")),
		Friend: models.CanonicalUsername(chi.URLParam(r, "friend")),
	}
	if !validateRequest(w, &req) {
		return
	}

	removed, err := h.svc.RemoveFriend(r.Context(), h.apiKey(r), req.Owner, req.Friend)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Friend not found", nil)
		return
	}
	respondData(w, r, start, map[string]bool{"removed": true})
}
