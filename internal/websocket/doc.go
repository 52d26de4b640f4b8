// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package websocket carries games and their observers over websockets.

Two kinds of connection terminate here.

Guests: Gateway is a host.Embedder whose embeddings live on the far side of
a socket. Embedding a game yields a token; the game dials BaseURL/<token>
(see channel.Dial) and from then on exchanges protocol messages with its
host Manager exactly as an in-process guest would. The socket is the
isolation boundary: inbound frames are attributed to the embedding's guest
origin, browsers dialling from any other page are refused, and a token
accepts one live connection at a time. A restart keeps the token so the
guest can reconnect.

Observers: Hub fans host-side activity out to observer sockets, such as the
hosting page or a spectator view. Each client observes one topic, an embed
id or a session id, chosen with the topic query parameter or a subscribe
frame:

	{"type":"subscribe","data":{"topic":"<session id>"}}

Frames sent to observers:

  - game_ready, score_saved, game_over: per embed (Hub.Callbacks)
  - players_updated, multiplayer_event: per embed, multiplayer only
  - session_changed: per session, from the change feed (FeedSubscriber)
  - pong: answer to a ping frame

Hub and FeedSubscriber implement suture.Service and run under the
supervisor's messaging layer.

Each observer client has a read goroutine, which handles ping and subscribe
frames, and a write goroutine, which sends frames and keepalive pings. A
client that falls behind is disconnected rather than allowed to stall the
hub.
*/
package websocket
