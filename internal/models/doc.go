// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package models defines the records shared by the host, the lobby service, the
stores and the HTTP API.

Record categories:

  - GameScore and LeaderboardEntry: immutable score records and their
    aggregates, written by the host on SAVE_SCORE
  - GameSession and GamePlayer: multiplayer lobby rows, mutated only through
    transactional lobby operations
  - SessionFilter: query options for listing sessions
  - APIResponse: the JSON envelope every HTTP endpoint returns

Status values are typed strings so invalid values are caught by Valid before
they reach a store.
*/
package models
