// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/rivalry/internal/logging"
)

// ErrInvalidUsername is returned for empty usernames.
var ErrInvalidUsername = errors.New("database: username is required")

// ErrSelfFriend is returned when a user tries to befriend themselves.
var ErrSelfFriend = errors.New("database: cannot add yourself as a friend")

// closeWithLog closes a resource and logs any error
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
