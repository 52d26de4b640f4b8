// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package lobby implements multiplayer sessions and player presence.

A session moves waiting -> playing -> completed and never backwards. Players
move between waiting, ready, playing and disconnected. Service enforces the
rules, each multi-row operation inside a single store transaction:

  - CreateSession writes the session (currentPlayers=1) and the host's player
    row together.
  - JoinSession re-seats an existing member without touching the count, and
    otherwise checks capacity and increments in the same transaction.
  - LeaveSession by the host completes the session; anyone else decrements
    the count (floored at zero).
  - Only the host may change session status; players only change their own
    row.

Failures are *Error values carrying an operation, a Kind and a sentinel, so
callers can both show the message and branch with errors.Is.

Lobby layers a per-user state machine (browsing, in session, in progress) on
top of Service and keeps itself current through change-feed subscriptions.
*/
package lobby
