// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package channel is the isolation boundary between a host and an embedded game.

A Channel delivers protocol.Message values asynchronously, in order per
direction, with no acknowledgement and no retry. Two properties matter to
callers:

  - Listeners are registered for a single sender origin. Envelopes from any
    other origin never reach them.
  - A message delivered to an endpoint with no listener yet is dropped. The
    guest's GAME_READY handshake exists to cover this window.

Port is the endpoint type. Each Port owns one dispatch goroutine, so all of an
endpoint's listener callbacks run sequentially, the way script handlers run on
a single event loop. Ports are wired together with NewPipe for in-process
embeddings, or bridged to a gorilla/websocket connection with Bridge (host
side) and Dial (guest side) for remote ones.
*/
package channel
