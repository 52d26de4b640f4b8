// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package supervisor provides process supervision for Gamebridge using suture v4.

# Overview

Long-running services are grouped into three layers so a crash loop in one
does not take down the others:

	RootSupervisor ("gamebridge")
	├── DataSupervisor ("data-layer")
	│   └── NATSServerService (when NATS_EMBEDDED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket.Hub
	│   ├── websocket.FeedSubscriber
	│   └── EmbedRegistryService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Badger and DuckDB are libraries, not services; main opens them before the
tree starts and closes them after it stops.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	<-errCh

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Past FailureThreshold the supervisor waits FailureBackoff before the next
restart. Returning nil from Serve stops a service for good; returning an
error restarts it.

Supervisor events are logged through sutureslog into the zerolog backend
(see logging.NewSlogLogger).

# Debugging Shutdown

	report, _ := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    logging.Warn().Str("service", svc.Name).Msg("did not stop")
	}
*/
package supervisor
