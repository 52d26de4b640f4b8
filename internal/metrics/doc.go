// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package metrics registers the Prometheus collectors for Gamebridge.

Collectors are package-level promauto variables; callers use the Record*
helpers so label sets stay consistent. Everything is exposed on /metrics by
the API router.

Families:
  - gamebridge_channel_*: messages crossing host/guest boundaries and drops
  - gamebridge_guest_*: guest request timeouts
  - gamebridge_host_*: live embeddings and dispatched messages
  - gamebridge_scores_saved_total, gamebridge_lobby_operations_total
  - gamebridge_store_*, gamebridge_changefeed_*: persistence and notifications
  - gamebridge_duckdb_*, gamebridge_api_*, gamebridge_websocket_*
  - gamebridge_circuit_breaker_*: score store breaker
*/
package metrics
