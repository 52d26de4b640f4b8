// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package database persists game scores in DuckDB and answers leaderboard
queries over them.

Scores are append-only: InsertScore writes one immutable row per submission.
Leaderboards rank each user by their best score for a game, so repeated plays
never crowd other players out of the top N.

Usage:

	db, err := database.New(database.Config{Path: "/data/scores.duckdb"})
	if err != nil {
	    return err
	}
	defer db.Close()

	score, err := db.InsertScore(ctx, userID, gameID, 1200, nil)
	board, err := db.GameLeaderboard(ctx, gameID, 10)

The host's score path goes through BreakerScoreStore, which wraps any
ScoreStore with a gobreaker circuit breaker so an unhealthy database fails
score saves fast instead of stalling every SAVE_SCORE for the full request
timeout.

Path ":memory:" opens an in-memory database, used by tests.
*/
package database
