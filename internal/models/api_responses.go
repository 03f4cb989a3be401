// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package models

import "time"

// APIResponse is the envelope every HTTP endpoint returns.
//
// Status is "success" with Data populated, or "error" with Error populated:
//
//	{
//	  "status": "success",
//	  "data": {"username": "alice", "points": 120},
//	  "metadata": {"timestamp": "2026-01-05T12:00:00Z", "query_time_ms": 45}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries timing information for a response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is the error half of the envelope.
//
// Codes in use: VALIDATION_ERROR, INVALID_JSON, API_KEY_REQUIRED,
// NOT_FOUND, USER_NOT_FOUND, COULD_NOT_VERIFY, RATE_LIMITED,
// UPSTREAM_RATE_LIMITED, UPSTREAM_UNAVAILABLE, UPSTREAM_BAD_RESPONSE,
// UPSTREAM_ERROR, INTERNAL_ERROR, NOT_READY and the *_UNAVAILABLE or
// *_DISABLED codes for optional subsystems.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthStatus is returned by the health endpoints.
type HealthStatus struct {
	Status         string    `json:"status"`
	Version        string    `json:"version"`
	DatabaseOK     bool      `json:"database_ok"`
	CircuitBreaker string    `json:"circuit_breaker,omitempty"`
	Uptime         float64   `json:"uptime_seconds"`
	Timestamp      time.Time `json:"timestamp"`
}
