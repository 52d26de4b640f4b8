// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
)

const (
	scoresTable = "game_scores"

	// DefaultLeaderboardLimit applies when a caller passes no limit.
	DefaultLeaderboardLimit = 10
	// MaxLeaderboardLimit caps leaderboard and history queries.
	MaxLeaderboardLimit = 100
)

// ScoreStore persists scores. *DB and *BreakerScoreStore implement it.
type ScoreStore interface {
	InsertScore(ctx context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error)
}

func newScoreID() string {
	return uuid.NewString()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// InsertScore stores one score row.
func (db *DB) InsertScore(ctx context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error) {
	if userID == "" || gameID == "" {
		return nil, fmt.Errorf("%w: user and game ids are required", ErrInvalidScore)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, fmt.Errorf("%w: score must be finite", ErrInvalidScore)
	}

	var meta sql.NullString
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata: %w", ErrInvalidScore, err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	gs := &models.GameScore{
		ID:        db.newID(),
		Score:     score,
		GameID:    gameID,
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: db.now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO game_scores (id, game_id, user_id, score, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		gs.ID, gs.GameID, gs.UserID, gs.Score, meta, gs.CreatedAt)
	metrics.RecordDBQuery("insert", scoresTable, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}
	return gs, nil
}

// GameLeaderboard ranks users by their best score for gameID. Ties share a
// rank and are ordered by who reached the score first.
func (db *DB) GameLeaderboard(ctx context.Context, gameID string, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		WITH per_user AS (
			SELECT user_id, MAX(score) AS best, COUNT(*) AS plays, MAX(created_at) AS last_play
			FROM game_scores
			WHERE game_id = ?
			GROUP BY user_id
		), reached AS (
			SELECT s.user_id, MIN(s.created_at) AS reached_at
			FROM game_scores s
			JOIN per_user p ON s.user_id = p.user_id AND s.score = p.best
			WHERE s.game_id = ?
			GROUP BY s.user_id
		)
		SELECT RANK() OVER (ORDER BY p.best DESC) AS rnk, p.user_id, p.best, p.plays, p.last_play
		FROM per_user p
		JOIN reached r ON r.user_id = p.user_id
		ORDER BY rnk ASC, r.reached_at ASC, p.user_id ASC
		LIMIT ?`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, gameID, gameID, clampLimit(limit))
	defer func() { metrics.RecordDBQuery("leaderboard", scoresTable, time.Since(start), err) }()
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer closeWithLog(rows, "leaderboard rows")

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err = rows.Scan(&e.Rank, &e.UserID, &e.BestScore, &e.Plays, &e.LastPlay); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

// UserRank returns userID's standing on gameID's leaderboard, or ErrNotFound
// if they have no score for it.
func (db *DB) UserRank(ctx context.Context, gameID, userID string) (*models.UserRank, error) {
	query := `
		WITH best AS (
			SELECT user_id, MAX(score) AS best
			FROM game_scores
			WHERE game_id = ?
			GROUP BY user_id
		), ranked AS (
			SELECT user_id, best,
				RANK() OVER (ORDER BY best DESC) AS rnk,
				COUNT(*) OVER () AS total
			FROM best
		)
		SELECT rnk, best, total FROM ranked WHERE user_id = ?`

	r := &models.UserRank{GameID: gameID, UserID: userID}
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, query, gameID, userID).Scan(&r.Rank, &r.BestScore, &r.Players)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("user_rank", scoresTable, time.Since(start), nil)
		return nil, ErrNotFound
	}
	metrics.RecordDBQuery("user_rank", scoresTable, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query user rank: %w", err)
	}
	return r, nil
}

// UserScores returns userID's most recent scores, newest first. An empty
// gameID covers every game.
func (db *DB) UserScores(ctx context.Context, userID, gameID string, limit int) ([]models.GameScore, error) {
	query := `SELECT id, game_id, user_id, score, metadata, created_at FROM game_scores WHERE user_id = ?`
	args := []interface{}{userID}
	if gameID != "" {
		query += ` AND game_id = ?`
		args = append(args, gameID)
	}
	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, clampLimit(limit))

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	defer func() { metrics.RecordDBQuery("user_scores", scoresTable, time.Since(start), err) }()
	if err != nil {
		return nil, fmt.Errorf("query user scores: %w", err)
	}
	defer closeWithLog(rows, "user score rows")

	scores := []models.GameScore{}
	for rows.Next() {
		var s models.GameScore
		var meta sql.NullString
		if err = rows.Scan(&s.ID, &s.GameID, &s.UserID, &s.Score, &meta, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user score: %w", err)
		}
		if meta.Valid && meta.String != "" {
			if err = json.Unmarshal([]byte(meta.String), &s.Metadata); err != nil {
				return nil, fmt.Errorf("decode score metadata: %w", err)
			}
		}
		scores = append(scores, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user scores: %w", err)
	}
	return scores, nil
}
