// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package identity resolves who the current user is.

The platform's user accounts live elsewhere; gamebridge only needs a stable
user id (plus an optional display name and avatar) for the request being
served. Identities arrive as HS256 bearer tokens, are verified by JWTManager,
and travel through the call stack in a context.Context:

	ctx = identity.WithIdentity(ctx, identity.Identity{UserID: "u-42"})
	id, ok := identity.FromContext(ctx)

Middleware does the token-to-context step for HTTP and websocket requests.
An absent identity is a normal state (anonymous visitor), not an error.
*/
package identity
