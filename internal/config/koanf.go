// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rivalry/config.yaml",
	"/etc/rivalry/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file location.
const DotEnvPathEnvVar = "DOTENV_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:               "https://retroachievements.org/API",
			APIKey:                "",
			Timeout:               30 * time.Second,
			RequestsPerSecond:     0, // Unpaced
			Burst:                 1,
			RateLimitRetries:      2,
			HeavyRateLimitRetries: 3,
			RateLimitBaseDelay:    750 * time.Millisecond,
			MaxRetryAfter:         10 * time.Second,
			TransientAttempts:     4,
			TransientBaseDelay:    500 * time.Millisecond,
			CircuitBreaker:        true,
		},
		Cache: CacheConfig{
			TTL:             180 * time.Second,
			NowPlayingTTL:   30 * time.Second,
			CleanupInterval: 5 * time.Minute,
		},
		Limits: LimitsConfig{
			Leaderboard:      2,
			GameLeaderboards: 2,
			Enrichment:       2,
			Snapshot:         2,
		},
		Leaderboard: LeaderboardConfig{
			Self:                 "",
			Mode:                 "hc",
			PollInterval:         60 * time.Second,
			NowPlayingWindow:     120,
			NowPlayingAttempts:   4,
			NowPlayingRetryDelay: time.Second,
			HistoryRetentionDays: 30,
			SharedGamesCount:     60,
			AllGamesCount:        200,
		},
		Presence: PresenceConfig{
			TTL: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/rivalry.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		History: HistoryConfig{
			Path:     "/data/history",
			InMemory: false,
		},
		Snapshot: SnapshotConfig{
			Enabled:  true,
			Interval: time.Hour,
			Modes:    []string{"hc", "all"},
		},
		Server: ServerConfig{
			Port:     3860,
			Host:     "0.0.0.0",
			Timeout:  30 * time.Second,
			Timezone: "",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. .env file: optional, exported into the environment
//  3. Config File: optional YAML config file (if exists)
//  4. Environment Variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// RA_API_KEY -> upstream.api_key, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads DOTENV_PATH or ./.env when present. Variables already set
// in the environment win over the file.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"snapshot.modes",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Upstream
	"ra_base_url":                 "upstream.base_url",
	"ra_api_key":                  "upstream.api_key",
	"ra_timeout":                  "upstream.timeout",
	"ra_requests_per_second":      "upstream.requests_per_second",
	"ra_burst":                    "upstream.burst",
	"ra_rate_limit_retries":       "upstream.rate_limit_retries",
	"ra_heavy_rate_limit_retries": "upstream.heavy_rate_limit_retries",
	"ra_rate_limit_base_delay":    "upstream.rate_limit_base_delay",
	"ra_max_retry_after":          "upstream.max_retry_after",
	"ra_transient_attempts":       "upstream.transient_attempts",
	"ra_transient_base_delay":     "upstream.transient_base_delay",
	"ra_circuit_breaker":          "upstream.circuit_breaker",

	// Cache
	"cache_ttl":              "cache.ttl",
	"cache_now_playing_ttl":  "cache.now_playing_ttl",
	"cache_cleanup_interval": "cache.cleanup_interval",

	// Concurrency pools
	"limit_leaderboard":       "limits.leaderboard",
	"limit_game_leaderboards": "limits.game_leaderboards",
	"limit_enrichment":        "limits.enrichment",
	"limit_snapshot":          "limits.snapshot",

	// Leaderboard
	"leaderboard_self":                   "leaderboard.self",
	"leaderboard_mode":                   "leaderboard.mode",
	"leaderboard_poll_interval":          "leaderboard.poll_interval",
	"now_playing_window":                 "leaderboard.now_playing_window",
	"now_playing_attempts":               "leaderboard.now_playing_attempts",
	"now_playing_retry_delay":            "leaderboard.now_playing_retry_delay",
	"leaderboard_history_retention_days": "leaderboard.history_retention_days",
	"profile_shared_games":               "leaderboard.shared_games_count",
	"profile_all_games":                  "leaderboard.all_games_count",

	// Presence
	"presence_ttl": "presence.ttl",

	// Storage
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"history_path":      "history.path",
	"history_in_memory": "history.in_memory",
	"snapshot_enabled":  "snapshot.enabled",
	"snapshot_interval": "snapshot.interval",
	"snapshot_modes":    "snapshot.modes",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"tz_name":      "server.timezone",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
