// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateUpstream,
		c.validateCache,
		c.validateLimits,
		c.validateLeaderboard,
		c.validateSnapshot,
		c.validateServer,
		c.validateRateLimits,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateUpstream validates the achievement API client settings
func (c *Config) validateUpstream() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("RA_BASE_URL is required")
	}
	if err := validateHTTPURL(c.Upstream.BaseURL, "RA_BASE_URL"); err != nil {
		return fmt.Errorf("RA_BASE_URL is invalid: %w", err)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("RA_TIMEOUT must be positive")
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("RA_REQUESTS_PER_SECOND must not be negative")
	}
	if c.Upstream.RateLimitRetries < 0 || c.Upstream.HeavyRateLimitRetries < 0 {
		return fmt.Errorf("RA_RATE_LIMIT_RETRIES and RA_HEAVY_RATE_LIMIT_RETRIES must not be negative")
	}
	if c.Upstream.TransientAttempts < 1 {
		return fmt.Errorf("RA_TRANSIENT_ATTEMPTS must be at least 1")
	}
	return nil
}

// validateCache validates cache TTLs
func (c *Config) validateCache() error {
	if c.Cache.TTL <= 0 || c.Cache.NowPlayingTTL <= 0 {
		return fmt.Errorf("CACHE_TTL and CACHE_NOW_PLAYING_TTL must be positive")
	}
	return nil
}

// validateLimits validates the concurrency pool sizes
func (c *Config) validateLimits() error {
	pools := map[string]int{
		"LIMIT_LEADERBOARD":       c.Limits.Leaderboard,
		"LIMIT_GAME_LEADERBOARDS": c.Limits.GameLeaderboards,
		"LIMIT_ENRICHMENT":        c.Limits.Enrichment,
		"LIMIT_SNAPSHOT":          c.Limits.Snapshot,
	}
	for name, size := range pools {
		if size < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}
	return nil
}

// Now-playing window bounds in seconds
const (
	minNowPlayingWindow = 5
	maxNowPlayingWindow = 600
)

// validateLeaderboard validates leaderboard builder settings
func (c *Config) validateLeaderboard() error {
	lb := c.Leaderboard
	if lb.NowPlayingWindow < minNowPlayingWindow || lb.NowPlayingWindow > maxNowPlayingWindow {
		return fmt.Errorf("NOW_PLAYING_WINDOW must be between %d and %d", minNowPlayingWindow, maxNowPlayingWindow)
	}
	if lb.NowPlayingAttempts < 1 {
		return fmt.Errorf("NOW_PLAYING_ATTEMPTS must be at least 1")
	}
	if lb.Mode != "hc" && lb.Mode != "all" {
		return fmt.Errorf("LEADERBOARD_MODE must be hc or all, got %q", lb.Mode)
	}
	if lb.Self != "" && lb.PollInterval < time.Second {
		return fmt.Errorf("LEADERBOARD_POLL_INTERVAL must be at least 1s")
	}
	if lb.HistoryRetentionDays < 1 {
		return fmt.Errorf("LEADERBOARD_HISTORY_RETENTION_DAYS must be at least 1")
	}
	return nil
}

// validateSnapshot validates the scheduled snapshot job
func (c *Config) validateSnapshot() error {
	if !c.Snapshot.Enabled {
		return nil
	}
	if c.Snapshot.Interval < time.Minute {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be at least 1m")
	}
	for _, mode := range c.Snapshot.Modes {
		if mode != "hc" && mode != "all" {
			return fmt.Errorf("SNAPSHOT_MODES entries must be hc or all, got %q", mode)
		}
	}
	return nil
}

// validateServer validates the HTTP server settings
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timezone != "" {
		if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
			return fmt.Errorf("TZ_NAME is invalid: %w", err)
		}
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
