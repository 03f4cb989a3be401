// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/rivalry/internal/leaderboard"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/presence"
	"github.com/tomtom215/rivalry/internal/profile"
	"github.com/tomtom215/rivalry/internal/service"
	ws "github.com/tomtom215/rivalry/internal/websocket"
)

const (
	apiKeyHeader         = "X-API-Key"
	apiKeyQuery          = "key"
	profileSessionHeader = "X-Profile-Session"
)

// Poller is the warm leaderboard kept by the background poller.
type Poller interface {
	Self() string
	Latest() (models.LeaderboardSnapshot, bool)
	Refresh(ctx context.Context) (*leaderboard.Build, error)
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HistoryReader reads the daily history the leaderboard records after each
// build.
type HistoryReader interface {
	Get(ctx context.Context, usernames []string, days int, mode models.Mode, now time.Time, loc *time.Location) (models.DailyHistory, error)
}

// BreakerState reports the upstream circuit breaker state.
type BreakerState interface {
	State() string
}

// Deps are the collaborators of a Handler. Only Service is required.
type Deps struct {
	Service  service.Service
	Profiles *profile.Builder
	Presence *presence.Tracker
	Hub      *ws.Hub
	Poller   Poller
	DB       Pinger
	Breaker  BreakerState
	History  HistoryReader

	// Location is the zone day keys are computed in; nil means time.Local.
	Location *time.Location
	// DefaultAPIKey is used when a request carries no key.
	DefaultAPIKey string
	// PollerMode is the mode the poller ranks by.
	PollerMode models.Mode
	// AllowedOrigins gates WebSocket upgrades; "*" allows any.
	AllowedOrigins []string
	Version        string
}

// Handler serves the HTTP API.
type Handler struct {
	svc      service.Service
	profiles *profile.Builder
	presence *presence.Tracker
	hub      *ws.Hub
	poller   Poller
	db       Pinger
	breaker  BreakerState
	history  HistoryReader
	loc      *time.Location

	defaultAPIKey  string
	pollerMode     models.Mode
	allowedOrigins []string
	version        string
	startTime      time.Time
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	if d.Version == "" {
		d.Version = "dev"
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.PollerMode == "" {
		d.PollerMode = models.ModeHardcore
	}
	return &Handler{
		svc:            d.Service,
		profiles:       d.Profiles,
		presence:       d.Presence,
		hub:            d.Hub,
		poller:         d.Poller,
		db:             d.DB,
		breaker:        d.Breaker,
		history:        d.History,
		loc:            d.Location,
		defaultAPIKey:  d.DefaultAPIKey,
		pollerMode:     d.PollerMode,
		allowedOrigins: d.AllowedOrigins,
		version:        d.Version,
		startTime:      time.Now(),
	}
}

// apiKey returns the caller's key: header first, then query, then the
// configured fallback.
func (h *Handler) apiKey(r *http.Request) string {
	if k := strings.TrimSpace(r.Header.Get(apiKeyHeader)); k != "" {
		return k
	}
	if k := strings.TrimSpace(r.URL.Query().Get(apiKeyQuery)); k != "" {
		return k
	}
	return h.defaultAPIKey
}

// parseMode reads the mode query parameter; the validator has already
// accepted it.
func parseMode(r *http.Request) models.Mode {
	m, _ := models.ParseMode(r.URL.Query().Get("mode"))
	return m
}
