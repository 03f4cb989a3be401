// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package cache provides the short-TTL in-process response cache.
package cache

import "time"

// Cacher defines the interface consumers depend on. *Cache implements it;
// tests may substitute a map-backed fake.
type Cacher interface {
	// Get returns the value and true if present and not expired.
	Get(key string) (any, bool)

	// Set stores a value with the default TTL.
	Set(key string, value any)

	// SetWithTTL stores a value with a custom TTL.
	SetWithTTL(key string, value any, ttl time.Duration)

	// Delete removes a value.
	Delete(key string)

	// Clear removes every value.
	Clear()
}

var _ Cacher = (*Cache)(nil)
