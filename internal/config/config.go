// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package config loads the application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every setting
//  2. .env file: optional, loaded into the process environment (godotenv)
//  3. Config File: optional YAML file (CONFIG_PATH or config.yaml)
//  4. Environment Variables: override any setting through an explicit mapping
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	client := upstream.NewClient(&cfg.Upstream)
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Upstream    UpstreamConfig    `koanf:"upstream"`
	Cache       CacheConfig       `koanf:"cache"`
	Limits      LimitsConfig      `koanf:"limits"`
	Leaderboard LeaderboardConfig `koanf:"leaderboard"`
	Presence    PresenceConfig    `koanf:"presence"`
	Database    DatabaseConfig    `koanf:"database"`
	History     HistoryConfig     `koanf:"history"`
	Snapshot    SnapshotConfig    `koanf:"snapshot"`
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// UpstreamConfig configures the achievement API client.
type UpstreamConfig struct {
	// BaseURL is the API root, e.g. https://retroachievements.org/API.
	BaseURL string `koanf:"base_url"`

	// APIKey is the server-side fallback key used by the poller and the
	// snapshot job. Request handlers prefer the caller's key.
	APIKey string `koanf:"api_key"`

	// Timeout bounds a single HTTP request.
	// Default: 30s
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond paces outbound requests. 0 disables pacing.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// RateLimitRetries is the default HTTP 429 retry budget.
	// Default: 2
	RateLimitRetries int `koanf:"rate_limit_retries"`

	// HeavyRateLimitRetries applies to high-volume endpoints.
	// Default: 3
	HeavyRateLimitRetries int `koanf:"heavy_rate_limit_retries"`

	// RateLimitBaseDelay is the first 429 backoff; each retry doubles it.
	// Default: 750ms
	RateLimitBaseDelay time.Duration `koanf:"rate_limit_base_delay"`

	// MaxRetryAfter caps any single wait, including Retry-After hints.
	// Default: 10s
	MaxRetryAfter time.Duration `koanf:"max_retry_after"`

	// TransientAttempts and TransientBaseDelay govern retries of transport
	// failures during recently-played pagination.
	TransientAttempts  int           `koanf:"transient_attempts"`
	TransientBaseDelay time.Duration `koanf:"transient_base_delay"`

	// CircuitBreaker wraps the client in a circuit breaker.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// CacheConfig configures the short-TTL response cache.
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	NowPlayingTTL   time.Duration `koanf:"now_playing_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// LimitsConfig sizes the named concurrency pools.
type LimitsConfig struct {
	Leaderboard      int `koanf:"leaderboard"`
	GameLeaderboards int `koanf:"game_leaderboards"`
	Enrichment       int `koanf:"enrichment"`
	Snapshot         int `koanf:"snapshot"`
}

// LeaderboardConfig configures the leaderboard builder and poller.
type LeaderboardConfig struct {
	// Self is the username whose leaderboard the poller keeps warm. Empty
	// disables the poller.
	Self string `koanf:"self"`

	// Mode is the point basis the poller ranks by: hc or all.
	// Default: hc
	Mode string `koanf:"mode"`

	// PollInterval is how often the poller rebuilds the leaderboard.
	PollInterval time.Duration `koanf:"poll_interval"`

	// NowPlayingWindow is the activity window in seconds, clamped to [5,600].
	NowPlayingWindow int `koanf:"now_playing_window"`

	NowPlayingAttempts   int           `koanf:"now_playing_attempts"`
	NowPlayingRetryDelay time.Duration `koanf:"now_playing_retry_delay"`

	// HistoryRetentionDays bounds the client daily history store.
	HistoryRetentionDays int `koanf:"history_retention_days"`

	// SharedGamesCount and AllGamesCount size the profile game lists.
	SharedGamesCount int `koanf:"shared_games_count"`
	AllGamesCount    int `koanf:"all_games_count"`
}

// PresenceConfig configures the presence tracker.
type PresenceConfig struct {
	// TTL is how long a heartbeat keeps a session online.
	// Default: 15s
	TTL time.Duration `koanf:"ttl"`
}

// DatabaseConfig configures the DuckDB ledger.
type DatabaseConfig struct {
	// Path is the DuckDB file. ":memory:" keeps everything in process.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB worker count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// HistoryConfig configures the Badger-backed daily history store.
type HistoryConfig struct {
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// SnapshotConfig configures the scheduled daily points snapshot.
type SnapshotConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// Modes lists the point modes to snapshot: hc, all.
	Modes []string `koanf:"modes"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int           `koanf:"port"`
	Host    string        `koanf:"host"`
	Timeout time.Duration `koanf:"timeout"`

	// Timezone names the zone used for day boundaries, e.g. Europe/Berlin.
	Timezone string `koanf:"timezone"`
}

// SecurityConfig configures CORS and request rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Location returns the configured time zone, falling back to the local zone.
func (c *ServerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
