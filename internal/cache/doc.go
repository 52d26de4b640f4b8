// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package cache provides a small in-memory TTL cache.

It backs the leaderboard read path: leaderboard and rank queries are
aggregations over every score of a game, so their results are kept for a
short TTL and dropped by prefix when a new score for that game is written.

# Usage

	c := cache.New[[]models.LeaderboardEntry](10 * time.Second)
	defer c.Close()

	c.Set("leaderboard:tetris:10", entries)
	if v, ok := c.Get("leaderboard:tetris:10"); ok {
	    return v, nil
	}
	c.DeletePrefix("leaderboard:tetris:")

# Expiration

Entries expire lazily on Get. A background sweep removes the rest once a
minute until Close is called.

# Thread Safety

All methods are safe for concurrent use.
*/
package cache
