// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/rivalry/internal/database"
)

type monthlyRequest struct {
	Username string `query:"username" validate:"required,username"`
	Mode     string `query:"mode" validate:"pointmode"`
	From     string `query:"from" validate:"daykey"`
	To       string `query:"to" validate:"daykey"`
}

// MonthlyPoints handles GET /users/{username}/points/monthly.
func (h *Handler) MonthlyPoints(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	req := monthlyRequest{
		Username: chi.URLParam(r, "username"),
		Mode:     q.Get("mode"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
	if !validateRequest(w, &req) {
		return
	}

	mp, err := h.svc.MonthlyPoints(r.Context(), h.apiKey(r), req.Username, parseMode(r), req.From, req.To)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, mp)
}

type dailyRequest struct {
	Username string `query:"username" validate:"required,username"`
	Mode     string `query:"mode" validate:"pointmode"`
}

// DailyPoints handles GET /users/{username}/points/daily. The result is
// also recorded in the ledger.
func (h *Handler) DailyPoints(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := dailyRequest{
		Username: chi.URLParam(r, "username"),
		Mode:     r.URL.Query().Get("mode"),
	}
	if !validateRequest(w, &req) {
		return
	}

	dp, err := h.svc.DailyPoints(r.Context(), h.apiKey(r), req.Username, parseMode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, dp)
}

type historyRequest struct {
	Usernames []string `query:"usernames" validate:"required,min=1,max=50,dive,username"`
	Mode      string   `query:"mode" validate:"pointmode"`
}

// DailyHistory handles GET /points/history?usernames=a,b&days=7.
func (h *Handler) DailyHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := historyRequest{
		Usernames: parseCommaSeparated(r.URL.Query().Get("usernames")),
		Mode:      r.URL.Query().Get("mode"),
	}
	if !validateRequest(w, &req) {
		return
	}
	days := getIntParam(r, "days", database.DefaultHistoryDays)

	hist, err := h.svc.DailyHistory(r.Context(), h.apiKey(r), req.Usernames, days, parseMode(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondData(w, r, start, hist)
}
