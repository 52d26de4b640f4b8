// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package api exposes lobbies, leaderboards and embed control over HTTP.

# Routing

NewRouter builds a chi router. Every request gets an X-Request-ID, panic
recovery and Prometheus instrumentation; /api/v1 adds CORS (go-chi/cors),
per-IP rate limiting (go-chi/httprate), optional bearer authentication and
gzip compression.

	GET    /health/live
	GET    /health/ready
	GET    /metrics

	POST   /api/v1/auth/token                     development only
	GET    /api/v1/me
	GET    /api/v1/me/scores?game_id=&limit=

	GET    /api/v1/sessions?game_id=&status=&host_id=&sort_by=&sort_order=&limit=&offset=
	POST   /api/v1/sessions
	GET    /api/v1/sessions/{sessionID}
	PUT    /api/v1/sessions/{sessionID}/status    host only
	POST   /api/v1/sessions/{sessionID}/join
	POST   /api/v1/sessions/{sessionID}/leave
	POST   /api/v1/sessions/{sessionID}/start     host only
	GET    /api/v1/sessions/{sessionID}/players
	PUT    /api/v1/sessions/{sessionID}/players/me

	GET    /api/v1/games/{gameID}/leaderboard?limit=
	GET    /api/v1/games/{gameID}/rank

	GET    /api/v1/embeds
	POST   /api/v1/embeds
	GET    /api/v1/embeds/{embedID}
	DELETE /api/v1/embeds/{embedID}
	POST   /api/v1/embeds/{embedID}/pause
	POST   /api/v1/embeds/{embedID}/resume
	POST   /api/v1/embeds/{embedID}/restart

	GET    /ws/guest/{token}                      remote guest channel
	GET    /ws/observe?topic=                     embed or session events

# Responses

Every JSON response uses models.APIResponse:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","request_id":"..."}}
	{"status":"error","error":{"code":"SESSION_FULL","message":"session is full"},"metadata":{...}}

Lobby failures are mapped by kind: unauthenticated 401, forbidden 403, not
found 404, conflict 409, invalid 400, store 500. Conflicts carry a specific
code such as SESSION_FULL or PLAYERS_NOT_READY. Validation failures are
400 VALIDATION_ERROR with per-field details.

# Identity

The caller's identity comes from a bearer token (Authorization header or
access_token query parameter) verified by identity.Middleware. Anonymous
requests reach read-only endpoints; lobby writes answer 401 without one.
Embeds created by a signed-in user can only be controlled by that user.
*/
package api
