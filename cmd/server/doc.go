// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package main is the entry point for the Gamebridge server.

Gamebridge hosts embedded games. Each embedding runs a host manager that
speaks the guest message protocol over a websocket, saves scores to DuckDB
and, for multiplayer games, seats the viewer in a lobby session kept in
BadgerDB.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("gamebridge")
	├── DataSupervisor ("data-layer")
	│   ├── Embedded NATS server (CHANGEFEED_BACKEND=nats, NATS_EMBEDDED=true)
	│   └── Audit retention cleanup (AUDIT_ENABLED=true)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Observer hub
	│   ├── Change feed subscriber (session rows to observers)
	│   └── Embed registry (closes every embedding on shutdown)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog, JSON or console
 3. Change feed: in-process channels or NATS, optionally embedded
 4. Session store: BadgerDB, publishing commits to the change feed
 5. Score database: DuckDB behind a leaderboard cache and a circuit breaker
 6. Audit trail: audit_events table in the score database
 7. Lobby service, observer hub, guest gateway and embed registry
 8. HTTP server: Chi router with the API and websocket endpoints

# Configuration

Configuration is layered (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Common environment variables:

	HTTP_PORT=8080
	PUBLIC_URL=https://play.example     # guest socket URLs derive from it
	ENVIRONMENT=production
	LOG_LEVEL=info
	JWT_SECRET=<32+ chars>              # required in production
	STORE_PATH=/data/sessions
	DUCKDB_PATH=/data/scores.duckdb
	CHANGEFEED_BACKEND=gochannel        # or nats
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=false
	GUEST_RATE_LIMIT=50                 # guest messages per second
	GUEST_RESTART_MODE=reload           # or signal
	AUDIT_RETENTION=720h                # 0 keeps audit events forever

Changes to the config file reapply the log level without a restart.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains,
every embedding is closed, queued audit events are written, then the
score database, session store and change feed are closed in reverse order
of creation.
*/
package main
