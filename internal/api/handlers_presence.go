// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
)

type heartbeatRequest struct {
	Username  string `json:"username" query:"username" validate:"required,username"`
	SessionID string `json:"session_id" query:"session_id" validate:"omitempty,max=64"`
}

type heartbeatResponse struct {
	SessionID  string `json:"session_id"`
	TTLSeconds int    `json:"ttl_seconds"`
}

// Heartbeat handles POST /presence/heartbeat. The online list is broadcast
// whenever it changes.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.presence == nil {
		respondError(w, http.StatusServiceUnavailable, "PRESENCE_UNAVAILABLE", "Presence is not enabled", nil)
		return
	}
	var req heartbeatRequest
	if !decodeJSON(w, r, &req) || !validateRequest(w, &req) {
		return
	}

	before := h.presence.Online()
	id, err := h.presence.Heartbeat(req.Username, req.SessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.broadcastPresenceIfChanged(before)

	respondData(w, r, start, heartbeatResponse{
		SessionID:  id,
		TTLSeconds: int(h.presence.TTL() / time.Second),
	})
}

// LeavePresence handles DELETE /presence/{username}/{sessionID}.
func (h *Handler) LeavePresence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.presence == nil {
		respondError(w, http.StatusServiceUnavailable, "PRESENCE_UNAVAILABLE", "Presence is not enabled", nil)
		return
	}
	req := userRequest{Username: chi.URLParam(r, "username")}
	if !validateRequest(w, &req) {
		return
	}

	before := h.presence.Online()
	h.presence.Leave(req.Username, chi.URLParam(r, "sessionID"))
	h.broadcastPresenceIfChanged(before)
	respondData(w, r, start, map[string]bool{"left": true})
}

// Presence handles GET /presence. With ?usernames=a,b it reports each
// user's state; without it, the online list.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.presence == nil {
		respondError(w, http.StatusServiceUnavailable, "PRESENCE_UNAVAILABLE", "Presence is not enabled", nil)
		return
	}
	if users := parseCommaSeparated(r.URL.Query().Get("usernames")); len(users) > 0 {
		respondData(w, r, start, h.presence.Status(users))
		return
	}
	respondData(w, r, start, map[string][]string{"online": h.presence.Online()})
}

func (h *Handler) broadcastPresenceIfChanged(before []string) {
	if h.hub == nil {
		return
	}
	after := h.presence.Online()
	if !slices.Equal(before, after) {
		h.hub.BroadcastPresence(after)
	}
}
