// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package protocol defines the wire vocabulary spoken between a host and the
untrusted game it embeds.

Every exchange is a Message: a type tag plus an opaque JSON payload. Requests
carry an ID; the answering message carries the same value in ReplyTo, so a
guest can have several requests of the same type in flight and still match
each reply to its caller. Messages without ReplyTo are events.

Guest to host:

	GAME_READY  GET_USER_INFO  SAVE_SCORE  GAME_OVER
	GET_SESSION_PLAYERS  UPDATE_PLAYER_STATUS  SEND_MULTIPLAYER_EVENT

Host to guest:

	USER_INFO  SCORE_SAVED  SCORE_ERROR  PAUSE_GAME  RESUME_GAME  RESTART_GAME
	SESSION_PLAYERS  PLAYER_JOINED  PLAYER_LEFT  PLAYER_STATUS_CHANGED
	MULTIPLAYER_EVENT

Payloads are decoded with Message.Decode into the structs in payloads.go.
Decoding is lenient about unknown fields; the host never trusts user or game
identifiers found in guest payloads.
*/
package protocol
