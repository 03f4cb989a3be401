// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/rivalry/internal/models"
)

type snapshotRequest struct {
	Mode string `query:"mode" validate:"pointmode"`
}

type snapshotResponse struct {
	Mode     models.Mode `json:"mode"`
	Recorded int         `json:"recorded"`
}

// TriggerSnapshot handles POST /snapshot?mode= and runs the daily points
// snapshot for every known user synchronously.
func (h *Handler) TriggerSnapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := snapshotRequest{Mode: r.URL.Query().Get("mode")}
	if !validateRequest(w, &req) {
		return
	}
	mode := parseMode(r)

	n, err := h.svc.SnapshotDailyPointsForAllKnownUsers(r.Context(), h.apiKey(r), mode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, snapshotResponse{Mode: mode, Recorded: n})
}
