// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/models"
)

// countingBackend counts reads that reach it.
type countingBackend struct {
	mu          sync.Mutex
	leaderboard int
	rank        int
	scores      int
	insertErr   error
}

func (c *countingBackend) InsertScore(_ context.Context, userID, gameID string, score float64, _ map[string]interface{}) (*models.GameScore, error) {
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	return &models.GameScore{ID: "s", UserID: userID, GameID: gameID, Score: score}, nil
}

func (c *countingBackend) GameLeaderboard(_ context.Context, gameID string, _ int) ([]models.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leaderboard++
	return []models.LeaderboardEntry{{Rank: 1, UserID: "alice", BestScore: float64(c.leaderboard)}}, nil
}

func (c *countingBackend) UserRank(_ context.Context, gameID, userID string) (*models.UserRank, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rank++
	if userID == "nobody" {
		return nil, ErrNotFound
	}
	return &models.UserRank{GameID: gameID, UserID: userID, Rank: 1, Players: 1}, nil
}

func (c *countingBackend) UserScores(context.Context, string, string, int) ([]models.GameScore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores++
	return nil, nil
}

func (c *countingBackend) counts() (lb, rank, scores int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaderboard, c.rank, c.scores
}

func newCached(t *testing.T, next ScoreBackend, ttl time.Duration) *CachedScores {
	t.Helper()
	c := NewCachedScores(next, ttl)
	t.Cleanup(c.Close)
	return c
}

func TestCachedScoresLeaderboard(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{}
	c := newCached(t, backend, time.Minute)

	first, err := c.GameLeaderboard(ctx, "tetris", 10)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := c.GameLeaderboard(ctx, "tetris", 10)
	if lb, _, _ := backend.counts(); lb != 1 {
		t.Errorf("backend queried %d times, want 1", lb)
	}
	if second[0].BestScore != first[0].BestScore {
		t.Error("cached result differs")
	}

	second[0].UserID = "mutated"
	third, _ := c.GameLeaderboard(ctx, "tetris", 10)
	if third[0].UserID != "alice" {
		t.Error("caller mutation leaked into the cache")
	}

	if _, err := c.GameLeaderboard(ctx, "tetris", 5); err != nil {
		t.Fatal(err)
	}
	if lb, _, _ := backend.counts(); lb != 2 {
		t.Errorf("different limit should miss: %d queries", lb)
	}

	// Out-of-range limits share the clamped key.
	_, _ = c.GameLeaderboard(ctx, "tetris", MaxLeaderboardLimit+1)
	_, _ = c.GameLeaderboard(ctx, "tetris", MaxLeaderboardLimit)
	if lb, _, _ := backend.counts(); lb != 3 {
		t.Errorf("clamped limits should share a key: %d queries", lb)
	}
}

func TestCachedScoresInsertInvalidatesGame(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{}
	c := newCached(t, backend, time.Minute)

	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	_, _ = c.GameLeaderboard(ctx, "snake", 10)
	_, _ = c.UserRank(ctx, "tetris", "alice")

	if _, err := c.InsertScore(ctx, "bob", "tetris", 10, nil); err != nil {
		t.Fatal(err)
	}

	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	_, _ = c.GameLeaderboard(ctx, "snake", 10)
	_, _ = c.UserRank(ctx, "tetris", "alice")

	lb, rank, _ := backend.counts()
	if lb != 3 {
		t.Errorf("leaderboard queries = %d, want 3 (tetris twice, snake once)", lb)
	}
	if rank != 2 {
		t.Errorf("rank queries = %d, want 2", rank)
	}
}

func TestCachedScoresFailedInsertKeepsCache(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{insertErr: ErrInvalidScore}
	c := newCached(t, backend, time.Minute)

	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	if _, err := c.InsertScore(ctx, "bob", "tetris", 10, nil); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("InsertScore() error = %v", err)
	}
	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	if lb, _, _ := backend.counts(); lb != 1 {
		t.Errorf("failed insert invalidated the cache: %d queries", lb)
	}
}

func TestCachedScoresRankNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{}
	c := newCached(t, backend, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.UserRank(ctx, "tetris", "nobody"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("UserRank() error = %v", err)
		}
	}
	if _, rank, _ := backend.counts(); rank != 2 {
		t.Errorf("rank queries = %d, want 2", rank)
	}
}

func TestCachedScoresExpire(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{}
	c := newCached(t, backend, 20*time.Millisecond)

	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	time.Sleep(50 * time.Millisecond)
	_, _ = c.GameLeaderboard(ctx, "tetris", 10)
	if lb, _, _ := backend.counts(); lb != 2 {
		t.Errorf("expired entry served: %d queries", lb)
	}
}

func TestCachedScoresUserScoresPassThrough(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{}
	c := newCached(t, backend, time.Minute)

	_, _ = c.UserScores(ctx, "alice", "", 10)
	_, _ = c.UserScores(ctx, "alice", "", 10)
	if _, _, scores := backend.counts(); scores != 2 {
		t.Errorf("UserScores queries = %d, want 2", scores)
	}
}

func TestCachedScoresOverDuckDB(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	c := newCached(t, db, time.Minute)

	if _, err := c.InsertScore(ctx, "alice", "tetris", 100, nil); err != nil {
		t.Fatal(err)
	}
	entries, err := c.GameLeaderboard(ctx, "tetris", 10)
	if err != nil || len(entries) != 1 {
		t.Fatalf("leaderboard = %+v, %v", entries, err)
	}

	if _, err := c.InsertScore(ctx, "bob", "tetris", 200, nil); err != nil {
		t.Fatal(err)
	}
	entries, err = c.GameLeaderboard(ctx, "tetris", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].UserID != "bob" {
		t.Errorf("stale leaderboard after insert: %+v", entries)
	}

	rank, err := c.UserRank(ctx, "tetris", "alice")
	if err != nil || rank.Rank != 2 {
		t.Errorf("rank = %+v, %v", rank, err)
	}
}
