// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package logging is the single logging entry point for Gamebridge.

Every package logs through the global zerolog logger configured here. Host and
guest message handlers run on channel dispatch loops, far away from the HTTP
request that created them, so the request correlation id travels in the
context and is attached by Ctx:

	ctx = logging.ContextWithNewCorrelationID(ctx)
	logging.Ctx(ctx).Info().Str("game_id", gameID).Msg("embedding created")

Libraries that want a different logger interface get adapters backed by the
same zerolog instance:

  - NewSlogLogger for suture's sutureslog hook
  - NewWatermillLogger for Watermill publishers, subscribers and routers

Always terminate event chains with Msg or Send; an unterminated chain is
silently discarded.
*/
package logging
