// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package main is the entry point for the rivalry server.
//
// rivalry polls a retro achievement API on behalf of a small circle of
// friends and serves monthly and daily point totals, recent unlocks,
// head-to-head comparisons and a live friends leaderboard.
//
// # Startup order
//
//  1. Configuration: defaults, config.yaml, .env and environment (koanf)
//  2. DuckDB ledger for daily points, friends and known users
//  3. Badger store for the leaderboard's daily history
//  4. Upstream client, optional circuit breaker, response cache, limiter pools
//  5. Aggregator, leaderboard and profile builders, presence tracker
//  6. WebSocket hub, leaderboard poller, snapshot scheduler, HTTP server,
//     all run under the suture supervisor tree
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to
// SERVER_TIMEOUT, then the stores are closed.
//
// # Example
//
//	export RA_API_KEY=your-web-api-key
//	export LEADERBOARD_SELF=yourname
//	export SNAPSHOT_ENABLED=true
//	./rivalry
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/rivalry/internal/aggregate"
	"github.com/tomtom215/rivalry/internal/api"
	"github.com/tomtom215/rivalry/internal/cache"
	"github.com/tomtom215/rivalry/internal/config"
	"github.com/tomtom215/rivalry/internal/database"
	"github.com/tomtom215/rivalry/internal/history"
	"github.com/tomtom215/rivalry/internal/leaderboard"
	"github.com/tomtom215/rivalry/internal/limiter"
	"github.com/tomtom215/rivalry/internal/logging"
	"github.com/tomtom215/rivalry/internal/models"
	"github.com/tomtom215/rivalry/internal/poller"
	"github.com/tomtom215/rivalry/internal/presence"
	"github.com/tomtom215/rivalry/internal/profile"
	"github.com/tomtom215/rivalry/internal/scheduler"
	"github.com/tomtom215/rivalry/internal/service"
	"github.com/tomtom215/rivalry/internal/supervisor"
	"github.com/tomtom215/rivalry/internal/supervisor/services"
	"github.com/tomtom215/rivalry/internal/upstream"
	ws "github.com/tomtom215/rivalry/internal/websocket"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("version", Version).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("db_path", cfg.Database.Path).
		Str("self", cfg.Leaderboard.Self).
		Bool("snapshot_enabled", cfg.Snapshot.Enabled).
		Msg("Starting rivalry")

	if cfg.Upstream.APIKey == "" {
		logging.Warn().Msg("RA_API_KEY is not set: requests must carry their own key and background jobs will fail")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	hist, err := history.Open(&cfg.History)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open daily history store")
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing daily history store")
		}
	}()

	var fetcher upstream.Fetcher = upstream.NewClient(&cfg.Upstream)
	var breaker *upstream.BreakerClient
	if cfg.Upstream.CircuitBreaker {
		breaker = upstream.NewBreakerClient(fetcher)
		fetcher = breaker
		logging.Info().Msg("Upstream circuit breaker enabled")
	}
	src := upstream.NewAPI(fetcher, &cfg.Upstream)

	responses := cache.New("upstream", cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	defer responses.Close()

	pools := limiter.NewSet(1, map[string]int{
		limiter.PoolLeaderboard:      cfg.Limits.Leaderboard,
		limiter.PoolGameLeaderboards: cfg.Limits.GameLeaderboards,
		limiter.PoolEnrichment:       cfg.Limits.Enrichment,
		limiter.PoolSnapshot:         cfg.Limits.Snapshot,
	})

	loc := cfg.Server.Location()
	agg := aggregate.New(src, responses, pools, db, aggregate.OptionsFromConfig(cfg))
	board := leaderboard.NewBuilder(agg, pools, hist, leaderboard.OptionsFromConfig(cfg))
	profiles := profile.NewBuilder(agg, profile.OptionsFromConfig(cfg))
	tracker := presence.New(cfg.Presence.TTL)
	svc := service.New(agg, db, board, pools, loc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.Timeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	hub := ws.NewHub()
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	mode, _ := models.ParseMode(cfg.Leaderboard.Mode)
	var warm *poller.Poller
	if cfg.Leaderboard.Self != "" {
		if err := db.AddUser(ctx, models.CanonicalUsername(cfg.Leaderboard.Self), true); err != nil {
			logging.Warn().Err(err).Msg("Failed to record leaderboard owner")
		}
		warm = poller.New(svc, hub, poller.Config{
			APIKey:   cfg.Upstream.APIKey,
			Self:     cfg.Leaderboard.Self,
			Mode:     mode,
			Interval: cfg.Leaderboard.PollInterval,
		})
		tree.AddMessagingService(warm)
		logging.Info().
			Str("self", warm.Self()).
			Dur("interval", cfg.Leaderboard.PollInterval).
			Msg("Leaderboard poller enabled")
	}

	if cfg.Snapshot.Enabled {
		modes := make([]models.Mode, 0, len(cfg.Snapshot.Modes))
		for _, m := range cfg.Snapshot.Modes {
			if parsed, ok := models.ParseMode(m); ok {
				modes = append(modes, parsed)
			}
		}
		sched := scheduler.New(svc, scheduler.Config{
			APIKey:   cfg.Upstream.APIKey,
			Interval: cfg.Snapshot.Interval,
			Modes:    modes,
		})
		tree.AddDataService(services.NewSchedulerService(sched, "snapshot-scheduler"))
	}

	deps := api.Deps{
		Service:        svc,
		Profiles:       profiles,
		Presence:       tracker,
		Hub:            hub,
		DB:             db,
		History:        hist,
		Location:       loc,
		DefaultAPIKey:  cfg.Upstream.APIKey,
		PollerMode:     mode,
		AllowedOrigins: cfg.Security.CORSOrigins,
		Version:        Version,
	}
	// Typed nils must not leak into the interfaces.
	if warm != nil {
		deps.Poller = warm
	}
	if breaker != nil {
		deps.Breaker = breaker
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (RATE_LIMIT_DISABLED=true)")
	}
	router := api.NewRouter(api.NewHandler(deps), api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(cfg.Security)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Leaderboard requests with wait=true block for up to 30s.
		WriteTimeout: cfg.Server.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server configured")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor stopped with error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree exited unexpectedly")
		}
		cancel()
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop within timeout")
	}

	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Final database checkpoint failed")
	}
	logging.Info().Msg("Shutdown complete")
}
