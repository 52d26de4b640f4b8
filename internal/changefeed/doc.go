// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package changefeed carries lobby row changes and multiplayer relay traffic
over Watermill.

Two streams share one Feed:

  - Changes: every committed store transaction publishes its batch of
    store.Change values on a single topic. Lobby subscriptions re-read the
    rows they care about when a batch mentions their session. Feed
    implements store.Notifier so a store can publish directly.
  - Relay: multiplayer events sent by one guest are published on a per-session
    topic so every host node with a participant in that session can forward
    them to its guests.

Backends:

	feed := changefeed.NewGoChannel()                // single process
	feed, err := changefeed.NewNATS(natsCfg)         // across host nodes

An embedded NATS server (EmbeddedServer) is available for single-binary
deployments that still want the NATS transport.

Delivery is at-most-once and ordered per subscription. Handlers run on a
per-subscription goroutine, so a slow handler delays only its own
subscription, and a handler may publish on the same Feed.
*/
package changefeed
