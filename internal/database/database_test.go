// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// testDBSemaphore serializes DuckDB instances across tests; concurrent CGO
// databases exhaust memory on small CI runners.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(Config{Path: MemoryPath, MaxMemory: "256MB", Threads: 2})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Deterministic, strictly increasing timestamps.
	var mu sync.Mutex
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return db
}

func mustInsert(t *testing.T, db *DB, user, game string, score float64) *models.GameScore {
	t.Helper()
	gs, err := db.InsertScore(context.Background(), user, game, score, nil)
	if err != nil {
		t.Fatalf("InsertScore(%s, %s, %v): %v", user, game, score, err)
	}
	return gs
}

func TestNewAndPing(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if db.Conn() == nil {
		t.Fatal("Conn() returned nil")
	}
}

func TestNewOnDisk(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "scores.duckdb")
	db, err := New(Config{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := db.InsertScore(context.Background(), "u1", "chess", 10, nil); err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Schema creation is idempotent and rows survive a reopen.
	db, err = New(Config{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	scores, err := db.UserScores(context.Background(), "u1", "", 0)
	if err != nil {
		t.Fatalf("UserScores: %v", err)
	}
	if len(scores) != 1 {
		t.Errorf("got %d scores after reopen, want 1", len(scores))
	}
}

func TestInsertScore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	gs, err := db.InsertScore(ctx, "u1", "chess", 42.5, map[string]interface{}{"level": "3"})
	if err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	if gs.ID == "" {
		t.Error("score has no id")
	}
	if gs.Score != 42.5 || gs.UserID != "u1" || gs.GameID != "chess" {
		t.Errorf("unexpected score row %+v", gs)
	}
	if gs.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	scores, err := db.UserScores(ctx, "u1", "chess", 10)
	if err != nil {
		t.Fatalf("UserScores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1", len(scores))
	}
	if scores[0].ID != gs.ID {
		t.Errorf("id = %s, want %s", scores[0].ID, gs.ID)
	}
	if scores[0].Metadata["level"] != "3" {
		t.Errorf("metadata = %v", scores[0].Metadata)
	}
}

func TestInsertScoreRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		user  string
		game  string
		score float64
	}{
		{"missing user", "", "chess", 1},
		{"missing game", "u1", "", 1},
		{"nan", "u1", "chess", math.NaN()},
		{"positive infinity", "u1", "chess", math.Inf(1)},
		{"negative infinity", "u1", "chess", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.InsertScore(ctx, tt.user, tt.game, tt.score, nil)
			if !errors.Is(err, ErrInvalidScore) {
				t.Errorf("err = %v, want ErrInvalidScore", err)
			}
		})
	}

	scores, err := db.UserScores(ctx, "u1", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 0 {
		t.Errorf("invalid scores were stored: %d rows", len(scores))
	}
}

func TestGameLeaderboard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, "alice", "chess", 10)
	mustInsert(t, db, "bob", "chess", 30)
	mustInsert(t, db, "alice", "chess", 50)
	mustInsert(t, db, "carol", "chess", 30)
	mustInsert(t, db, "dave", "checkers", 100)
	mustInsert(t, db, "bob", "chess", 5)

	board, err := db.GameLeaderboard(ctx, "chess", 10)
	if err != nil {
		t.Fatalf("GameLeaderboard: %v", err)
	}

	want := []struct {
		rank  int
		user  string
		best  float64
		plays int
	}{
		{1, "alice", 50, 2},
		{2, "bob", 30, 2},   // reached 30 before carol
		{2, "carol", 30, 1}, // tie shares the rank
	}
	if len(board) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(board), len(want), board)
	}
	for i, w := range want {
		got := board[i]
		if got.Rank != w.rank || got.UserID != w.user || got.BestScore != w.best || got.Plays != w.plays {
			t.Errorf("entry %d = %+v, want rank=%d user=%s best=%v plays=%d",
				i, got, w.rank, w.user, w.best, w.plays)
		}
	}
	if !board[1].LastPlay.After(board[2].LastPlay) {
		t.Errorf("bob's last play %v should be after carol's %v", board[1].LastPlay, board[2].LastPlay)
	}

	top, err := db.GameLeaderboard(ctx, "chess", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].UserID != "alice" {
		t.Errorf("limit 1 = %+v", top)
	}

	empty, err := db.GameLeaderboard(ctx, "go", 10)
	if err != nil {
		t.Fatal(err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown game = %#v, want empty non-nil slice", empty)
	}
}

func TestUserRank(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	mustInsert(t, db, "alice", "chess", 50)
	mustInsert(t, db, "bob", "chess", 30)
	mustInsert(t, db, "carol", "chess", 30)
	mustInsert(t, db, "dave", "chess", 10)

	tests := []struct {
		user string
		rank int
		best float64
	}{
		{"alice", 1, 50},
		{"bob", 2, 30},
		{"carol", 2, 30},
		{"dave", 4, 10},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			r, err := db.UserRank(ctx, "chess", tt.user)
			if err != nil {
				t.Fatalf("UserRank: %v", err)
			}
			if r.Rank != tt.rank || r.BestScore != tt.best || r.Players != 4 {
				t.Errorf("got %+v, want rank=%d best=%v players=4", r, tt.rank, tt.best)
			}
		})
	}

	if _, err := db.UserRank(ctx, "chess", "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user err = %v, want ErrNotFound", err)
	}
}

func TestUserScores(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := mustInsert(t, db, "u1", "chess", 1)
	mustInsert(t, db, "u1", "checkers", 2)
	last := mustInsert(t, db, "u1", "chess", 3)
	mustInsert(t, db, "u2", "chess", 99)

	all, err := db.UserScores(ctx, "u1", "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d scores, want 3", len(all))
	}
	if all[0].ID != last.ID {
		t.Errorf("newest first: got %s, want %s", all[0].ID, last.ID)
	}

	chess, err := db.UserScores(ctx, "u1", "chess", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chess) != 2 || chess[1].ID != first.ID {
		t.Errorf("chess scores = %+v", chess)
	}

	limited, err := db.UserScores(ctx, "u1", "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d rows", len(limited))
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{
		-1:   DefaultLeaderboardLimit,
		0:    DefaultLeaderboardLimit,
		5:    5,
		100:  100,
		5000: MaxLeaderboardLimit,
	} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

// failingStore fails the first n inserts.
type failingStore struct {
	mu    sync.Mutex
	fails int
	calls int
	err   error
}

func (f *failingStore) InsertScore(_ context.Context, userID, gameID string, score float64, _ map[string]interface{}) (*models.GameScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return nil, f.err
	}
	return &models.GameScore{ID: fmt.Sprintf("s%d", f.calls), UserID: userID, GameID: gameID, Score: score}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &failingStore{fails: 3, err: errors.New("disk full")}
	b := NewBreakerScoreStore(inner, BreakerConfig{
		Name:                "test-open",
		ConsecutiveFailures: 3,
		Timeout:             50 * time.Millisecond,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := b.InsertScore(ctx, "u", "g", 1, nil); err == nil || errors.Is(err, ErrUnavailable) {
			t.Fatalf("call %d err = %v, want inner failure", i, err)
		}
	}
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	if _, err := b.InsertScore(ctx, "u", "g", 1, nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("open circuit err = %v, want ErrUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("open circuit reached the store: %d calls", inner.calls)
	}

	time.Sleep(80 * time.Millisecond)
	gs, err := b.InsertScore(ctx, "u", "g", 7, nil)
	if err != nil {
		t.Fatalf("probe after timeout: %v", err)
	}
	if gs.Score != 7 {
		t.Errorf("score = %v", gs.Score)
	}
	if b.State() != "closed" {
		t.Errorf("state after probe = %s, want closed", b.State())
	}
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	t.Parallel()

	inner := &failingStore{fails: 10, err: fmt.Errorf("%w: nan", ErrInvalidScore)}
	b := NewBreakerScoreStore(inner, BreakerConfig{Name: "test-caller", ConsecutiveFailures: 2})

	for i := 0; i < 5; i++ {
		if _, err := b.InsertScore(context.Background(), "u", "g", 1, nil); !errors.Is(err, ErrInvalidScore) {
			t.Fatalf("err = %v, want ErrInvalidScore", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, invalid scores must not open the circuit", b.State())
	}
}

func TestBreakerOverDuckDB(t *testing.T) {
	db := setupTestDB(t)
	b := NewBreakerScoreStore(db, DefaultBreakerConfig())

	gs, err := b.InsertScore(context.Background(), "u1", "chess", 12, nil)
	if err != nil {
		t.Fatalf("InsertScore: %v", err)
	}
	r, err := db.UserRank(context.Background(), "chess", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if r.BestScore != gs.Score {
		t.Errorf("best = %v, want %v", r.BestScore, gs.Score)
	}
}
