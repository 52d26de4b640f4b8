// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package services adapts Gamebridge components to suture.Service.

Each wrapper translates a component's own lifecycle into the context-aware
Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTP Server (HTTPServerService):
  - Runs ListenAndServe in a goroutine
  - Calls Shutdown with its own deadline once ctx is canceled
  - http.ErrServerClosed is treated as a clean stop

Embedded NATS (NATSServerService):
  - Owns a server started by changefeed.NewEmbeddedServer
  - Reports ErrNATSServerStopped if the server dies underneath it
  - Shuts the server down on cancellation

Embed Registry (EmbedRegistryService):
  - Closes every live embedding when the tree stops, before the change
    feed and store are torn down

The websocket Hub and FeedSubscriber implement suture.Service themselves
and are added to the tree directly.

# Example

	tree.AddDataService(services.NewNATSServerService(natsServer, 10*time.Second))
	tree.AddMessagingService(hub)
	tree.AddMessagingService(websocket.NewFeedSubscriber(hub, feed))
	tree.AddMessagingService(services.NewEmbedRegistryService(registry))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
*/
package services
