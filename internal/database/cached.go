// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/gamebridge/internal/cache"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
)

// ScoreBackend is the full score surface of DB.
type ScoreBackend interface {
	ScoreStore
	GameLeaderboard(ctx context.Context, gameID string, limit int) ([]models.LeaderboardEntry, error)
	UserRank(ctx context.Context, gameID, userID string) (*models.UserRank, error)
	UserScores(ctx context.Context, userID, gameID string, limit int) ([]models.GameScore, error)
}

// CachedScores keeps leaderboard and rank results for a short TTL. A
// successful InsertScore through it drops every cached result for that
// game; writes made elsewhere show up once the TTL lapses.
type CachedScores struct {
	next         ScoreBackend
	leaderboards *cache.Cache[[]models.LeaderboardEntry]
	ranks        *cache.Cache[models.UserRank]
}

// NewCachedScores wraps next with caches of the given TTL.
func NewCachedScores(next ScoreBackend, ttl time.Duration) *CachedScores {
	return &CachedScores{
		next:         next,
		leaderboards: cache.New[[]models.LeaderboardEntry](ttl),
		ranks:        cache.New[models.UserRank](ttl),
	}
}

// gamePrefix scopes keys to one game. The NUL separator cannot appear in a
// validated game id.
func gamePrefix(gameID string) string {
	return gameID + "\x00"
}

// InsertScore writes through and invalidates the game's cached results.
func (c *CachedScores) InsertScore(ctx context.Context, userID, gameID string, score float64, metadata map[string]interface{}) (*models.GameScore, error) {
	gs, err := c.next.InsertScore(ctx, userID, gameID, score, metadata)
	if err != nil {
		return nil, err
	}
	c.Invalidate(gameID)
	return gs, nil
}

// GameLeaderboard implements ScoreBackend.
func (c *CachedScores) GameLeaderboard(ctx context.Context, gameID string, limit int) ([]models.LeaderboardEntry, error) {
	key := gamePrefix(gameID) + strconv.Itoa(clampLimit(limit))
	if entries, ok := c.leaderboards.Get(key); ok {
		metrics.RecordCacheLookup("leaderboard", true)
		return append([]models.LeaderboardEntry(nil), entries...), nil
	}
	metrics.RecordCacheLookup("leaderboard", false)

	entries, err := c.next.GameLeaderboard(ctx, gameID, limit)
	if err != nil {
		return nil, err
	}
	c.leaderboards.Set(key, append([]models.LeaderboardEntry(nil), entries...))
	return entries, nil
}

// UserRank implements ScoreBackend. ErrNotFound is not cached.
func (c *CachedScores) UserRank(ctx context.Context, gameID, userID string) (*models.UserRank, error) {
	key := gamePrefix(gameID) + userID
	if r, ok := c.ranks.Get(key); ok {
		metrics.RecordCacheLookup("user_rank", true)
		return &r, nil
	}
	metrics.RecordCacheLookup("user_rank", false)

	r, err := c.next.UserRank(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}
	c.ranks.Set(key, *r)
	return r, nil
}

// UserScores is not cached; it is already an indexed per-user read.
func (c *CachedScores) UserScores(ctx context.Context, userID, gameID string, limit int) ([]models.GameScore, error) {
	return c.next.UserScores(ctx, userID, gameID, limit)
}

// Invalidate drops every cached result for gameID.
func (c *CachedScores) Invalidate(gameID string) {
	p := gamePrefix(gameID)
	c.leaderboards.DeletePrefix(p)
	c.ranks.DeletePrefix(p)
}

// Close stops the caches' background sweeps. It does not close next.
func (c *CachedScores) Close() {
	c.leaderboards.Close()
	c.ranks.Close()
}
