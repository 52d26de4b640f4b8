// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package models

import "time"

// GameScore is a single score submission. Once persisted it is never mutated.
type GameScore struct {
	ID        string                 `json:"id"`
	Score     float64                `json:"score"`
	GameID    string                 `json:"game_id"`
	UserID    string                 `json:"user_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// LeaderboardEntry is one row of a per-game leaderboard: a user's best score.
type LeaderboardEntry struct {
	Rank      int       `json:"rank"`
	UserID    string    `json:"user_id"`
	BestScore float64   `json:"best_score"`
	Plays     int       `json:"plays"`
	LastPlay  time.Time `json:"last_played_at"`
}

// UserRank is a user's standing on one game's leaderboard.
type UserRank struct {
	GameID    string  `json:"game_id"`
	UserID    string  `json:"user_id"`
	Rank      int     `json:"rank"`
	BestScore float64 `json:"best_score"`
	Players   int     `json:"players"`
}
