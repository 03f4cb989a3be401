// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/rivalry/internal/models"
)

const breakerOpen = "open"

func (h *Handler) healthStatus(ctx context.Context) models.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dbOK := h.db != nil && h.db.Ping(ctx) == nil
	breaker := ""
	if h.breaker != nil {
		breaker = h.breaker.State()
	}

	status := "healthy"
	if !dbOK || breaker == breakerOpen {
		status = "degraded"
	}
	return models.HealthStatus{
		Status:         status,
		Version:        h.version,
		DatabaseOK:     dbOK,
		CircuitBreaker: breaker,
		Uptime:         time.Since(h.startTime).Seconds(),
		Timestamp:      time.Now(),
	}
}

// Health handles GET /health with database and circuit breaker state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, time.Now(), h.healthStatus(r.Context()))
}

// HealthLive returns 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, time.Now(), map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 503 until the ledger answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := h.healthStatus(r.Context())
	if !health.DatabaseOK {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     health,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    &models.APIError{Code: "NOT_READY", Message: "Database is not reachable"},
		})
		return
	}
	respondData(w, r, time.Now(), health)
}
