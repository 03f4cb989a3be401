// Rivalry - Achievement Leaderboard Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rivalry

/*
Package supervisor runs the long-lived parts of rivalry under suture v4.

	RootSupervisor ("rivalry")
	├── DataSupervisor ("data-layer")
	│   └── SchedulerService "snapshot-scheduler" (if SNAPSHOT_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService "websocket-hub"
	│   └── Poller "leaderboard-poller" (if LEADERBOARD_SELF is set)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService "http-server"

Crashed services are restarted with suture's backoff. Each layer counts
failures on its own, so a poller stuck on a dead upstream does not stop the
HTTP server from serving cached data.

Supervisor events are logged through sutureslog onto the slog bridge from
internal/logging:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
