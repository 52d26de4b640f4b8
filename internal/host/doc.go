// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package host embeds untrusted games and speaks the host side of the game
protocol.

A Manager owns one embedding. Creation resolves the viewer's identity while
the Embedder builds the isolated context, registers the host listener on the
embedding's channel and only then loads the guest, so GAME_READY can never
arrive before someone is listening.

Guest requests are dispatched one at a time on the channel's loop:

	GAME_READY               state ready, OnGameReady
	GET_USER_INFO            USER_INFO from the resolved identity
	SAVE_SCORE               SCORE_SAVED or SCORE_ERROR
	GAME_OVER                OnGameOver
	GET_SESSION_PLAYERS      SESSION_PLAYERS
	UPDATE_PLAYER_STATUS     write through, then SESSION_PLAYERS
	SEND_MULTIPLAYER_EVENT   echo MULTIPLAYER_EVENT and publish on the relay

The guest never chooses who it is: scores are stored under the host's user
and game ids, and multiplayer events are stamped with the host's user id
before they are relayed.

In multiplayer mode the manager subscribes to the session roster and the
relay. Roster changes reach the guest as PLAYER_JOINED, PLAYER_LEFT and
PLAYER_STATUS_CHANGED; events relayed by other embeddings of the session
reach it as MULTIPLAYER_EVENT. A manager ignores its own relay traffic.

Embedders:

  - LocalEmbedder runs a guest.EntryFunc in-process over a channel pipe.
  - websocket.Gateway accepts remote guests over a websocket.

Registry tracks live managers by embed id for the HTTP control API.
*/
package host
