// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rivalry/internal/aggregate"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/presence"
	"github.com/tomtom215/rivalry/internal/service"
	"github.com/tomtom215/rivalry/internal/upstream"
	"github.com/tomtom215/rivalry/internal/validation"
)

// sanitizeLogValue escapes control characters so request input cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData sends a success envelope.
func respondData(w http.ResponseWriter, r *http.Request, start time.Time, data any) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps core errors onto HTTP statuses. It is the only
// place that knows the mapping.
func writeServiceError(w http.ResponseWriter, err error) {
	var upErr *upstream.UpstreamError
	switch {
	case errors.Is(err, upstream.ErrMissingAPIKey):
		respondError(w, http.StatusUnauthorized, "API_KEY_REQUIRED", "API key required", nil)
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	case errors.Is(err, service.ErrCouldNotVerify):
		respondError(w, http.StatusBadGateway, "COULD_NOT_VERIFY", "Could not verify user", err)
	case errors.Is(err, service.ErrSelfFriend):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "cannot add yourself as a friend", nil)
	case errors.Is(err, service.ErrUsernameRequired), errors.Is(err, presence.ErrNoUsername):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "username is required", nil)
	case errors.Is(err, aggregate.ErrInvalidArgument):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, upstream.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Not found upstream", nil)
	case errors.Is(err, upstream.ErrCircuitOpen):
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Upstream temporarily unavailable", err)
	case upstream.IsRateLimited(err):
		respondError(w, http.StatusTooManyRequests, "UPSTREAM_RATE_LIMITED", "Upstream rate limit exceeded", err)
	case errors.Is(err, upstream.ErrUnexpectedShape):
		respondError(w, http.StatusBadGateway, "UPSTREAM_BAD_RESPONSE", "Unexpected upstream response", err)
	case errors.As(err, &upErr), upstream.IsTransient(err):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream request failed", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", err)
	}
}

// validateRequest validates a request struct and writes the 400 response
// when it fails. It reports whether the handler should continue.
func validateRequest(w http.ResponseWriter, v any) bool {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	respondJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    apiErr,
	})
	return false
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return intValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// decodeJSON reads a small JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", nil)
		return false
	}
	return true
}
