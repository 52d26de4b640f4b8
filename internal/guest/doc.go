// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package guest is the SDK a game uses to talk to the platform hosting it.

The host hands the game a channel endpoint and a Config and calls the game's
EntryFunc through Bootstrap. Construction announces readiness with
GAME_READY, resolves the viewer's identity and, in multiplayer mode, fetches
the session roster:

	err := guest.Bootstrap(ctx, port, guest.Config{
		GameID:     "snake",
		HostOrigin: hostOrigin,
	}, func(ctx context.Context, sdk *guest.SDK) error {
		sdk.On(guest.EventPause, func(interface{}) { game.Pause() })
		score := game.Play(ctx)
		_, err := sdk.EndGame(ctx, score, nil)
		return err
	})

Requests (GetUserInfo, SaveScore, GetSessionPlayers) wait for a reply
correlated by message id and give up after Config.RequestTimeout. Listener
callbacks run on the channel's dispatch goroutine; a listener that calls a
request method blocks its own reply and will time out, so requests belong on
the game's goroutine.
*/
package guest
