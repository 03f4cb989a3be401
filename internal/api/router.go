// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rivalry/internal/middleware"
)

// chiMiddleware adapts a HandlerFunc middleware to chi's signature.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(DefaultChiMiddlewareConfig())
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	h := router.handler

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Route("/users/{username}", func(r chi.Router) {
			r.Get("/summary", h.UserSummary)
			r.Get("/now-playing", h.NowPlaying)
			r.Get("/recent/achievements", h.RecentAchievements)
			r.Get("/recent/times", h.RecentTimes)
			r.Get("/recent/games", h.RecentGames)
			r.Get("/points/monthly", h.MonthlyPoints)
			r.Get("/points/daily", h.DailyPoints)
			r.Get("/games/{gameID}/achievements", h.GameAchievements)
			r.Get("/games/{gameID}/times", h.GameTimes)

			r.Get("/friends", h.Friends)
			r.Post("/friends", h.AddFriend)
			r.Delete("/friends/{friend}", h.RemoveFriend)
		})

		r.Get("/points/history", h.DailyHistory)

		r.Route("/compare/{me}/{them}", func(r chi.Router) {
			r.Get("/shared", h.SharedGames)
			r.Get("/all", h.AllGames)
			r.Get("/games/{gameID}", h.CompareGame)
			r.Get("/games/{gameID}/counts", h.GameCounts)
			r.Get("/games/{gameID}/achievements", h.CompareAchievements)
			r.Get("/games/{gameID}/times", h.CompareTimes)
		})

		r.Get("/leaderboard", h.Leaderboard)
		r.Get("/leaderboard/history", h.LeaderboardHistory)
		r.Post("/leaderboard/refresh", h.RefreshLeaderboard)

		r.Get("/presence", h.Presence)
		r.Post("/presence/heartbeat", h.Heartbeat)
		r.Delete("/presence/{username}/{sessionID}", h.LeavePresence)

		r.Post("/snapshot", h.TriggerSnapshot)

		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
