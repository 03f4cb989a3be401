// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

// Package services adapts rivalry's long-lived components to suture.Service.
//
//   - HTTPServerService: ListenAndServe/Shutdown to Serve
//   - WebSocketHubService: Hub.RunWithContext to Serve
//   - SchedulerService: Start/Stop to Serve, used by the snapshot scheduler
//
// The leaderboard poller implements Serve itself and needs no wrapper.
package services
