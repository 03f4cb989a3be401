// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/rivalry/internal/database"
	"github.com/tomtom215/rivalry/internal/models"
)

// maxLeaderboardWait bounds ?wait=true requests.
const maxLeaderboardWait = 30 * time.Second

type leaderboardRequest struct {
	Self string `query:"self" validate:"omitempty,username"`
	Mode string `query:"mode" validate:"pointmode"`
}

// Leaderboard handles GET /leaderboard?self=&mode=&wait=.
//
// The poller's snapshot is served when it covers the request. Otherwise a
// build is started on demand; by default the wave 1 snapshot is returned at
// once, with wait=true the handler blocks until every wave has landed.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	req := leaderboardRequest{Self: q.Get("self"), Mode: q.Get("mode")}
	if !validateRequest(w, &req) {
		return
	}
	mode := parseMode(r)
	self := models.CanonicalUsername(req.Self)

	if h.poller != nil && (self == "" || self == h.poller.Self()) && mode == h.pollerMode {
		if snap, ok := h.poller.Latest(); ok {
			respondData(w, r, start, snap)
			return
		}
		if self == "" {
			self = h.poller.Self()
		}
	}
	if self == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "self is required", nil)
		return
	}

	build, err := h.svc.BuildLeaderboard(r.Context(), h.apiKey(r), self, mode, nil)
	if build == nil {
		writeServiceError(w, err)
		return
	}
	if err != nil || q.Get("wait") != "true" {
		// A failed wave 1 still yields a snapshot carrying the banner.
		respondData(w, r, start, build.Latest())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), maxLeaderboardWait)
	defer cancel()
	snap, _ := build.Wait(ctx)
	respondData(w, r, start, snap)
}

// RefreshLeaderboard handles POST /leaderboard/refresh and starts a poller
// build right away.
func (h *Handler) RefreshLeaderboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.poller == nil {
		respondError(w, http.StatusServiceUnavailable, "POLLER_DISABLED", "Leaderboard poller is not configured", nil)
		return
	}
	build, err := h.poller.Refresh(context.WithoutCancel(r.Context()))
	if build == nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, build.Latest())
}

type leaderboardHistoryRequest struct {
	Usernames []string `query:"usernames" validate:"omitempty,max=50,dive,username"`
	Mode      string   `query:"mode" validate:"pointmode"`
}

// LeaderboardHistory handles GET /leaderboard/history?usernames=&days=&mode=.
//
// It serves the daily points the leaderboard recorded for each user. Without
// usernames the rows of the poller's latest snapshot are used.
func (h *Handler) LeaderboardHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Leaderboard history is not configured", nil)
		return
	}
	q := r.URL.Query()
	req := leaderboardHistoryRequest{
		Usernames: parseCommaSeparated(q.Get("usernames")),
		Mode:      q.Get("mode"),
	}
	if !validateRequest(w, &req) {
		return
	}
	mode := parseMode(r)

	usernames := req.Usernames
	if len(usernames) == 0 && h.poller != nil && mode == h.pollerMode {
		if snap, ok := h.poller.Latest(); ok {
			for _, row := range snap.Rows {
				usernames = append(usernames, row.Username)
			}
		}
	}
	if len(usernames) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "usernames is required", nil)
		return
	}

	days := database.ClampHistoryDays(getIntParam(r, "days", database.DefaultHistoryDays))
	hist, err := h.history.Get(r.Context(), usernames, days, mode, time.Now(), h.loc)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, hist)
}
