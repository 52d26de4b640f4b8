// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// recorder is a Notifier that keeps every change it sees.
type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) Notify(_ context.Context, changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Change(nil), changes...))
}

func (r *recorder) all() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func setupStore(t *testing.T) (*BadgerStore, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := Open(Options{InMemory: true}, rec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, rec
}

func putSession(t *testing.T, s *BadgerStore, gs *models.GameSession) {
	t.Helper()
	if err := s.Update(context.Background(), func(tx Tx) error {
		return tx.PutSession(gs)
	}); err != nil {
		t.Fatalf("PutSession: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()

	s, rec := setupStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)
	putSession(t, s, &models.GameSession{
		ID: "s1", GameID: "chess", HostID: "u1", Status: models.SessionWaiting,
		MaxPlayers: 2, CurrentPlayers: 1, CreatedAt: now, UpdatedAt: now,
		Metadata: map[string]interface{}{"mode": "blitz"},
	})

	var got *models.GameSession
	if err := s.View(context.Background(), func(tx Tx) error {
		var err error
		got, err = tx.Session("s1")
		return err
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got.GameID != "chess" || got.MaxPlayers != 2 || !got.CreatedAt.Equal(now) || got.Metadata["mode"] != "blitz" {
		t.Errorf("unexpected session %+v", got)
	}

	batches := rec.all()
	if len(batches) != 1 || batches[0][0] != (Change{Kind: KindSession, Op: OpInsert, SessionID: "s1"}) {
		t.Errorf("unexpected changes %+v", batches)
	}
}

func TestMissingRowsReturnErrNotFound(t *testing.T) {
	t.Parallel()

	s, _ := setupStore(t)
	err := s.View(context.Background(), func(tx Tx) error {
		if _, err := tx.Session("nope"); !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("Session: %v", err)
		}
		if _, err := tx.Player("nope", "u1"); !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("Player: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.Update(context.Background(), func(tx Tx) error {
		return tx.DeletePlayer("nope", "u1")
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePlayer err = %v, want ErrNotFound", err)
	}
}

func TestFailedUpdateCommitsNothing(t *testing.T) {
	t.Parallel()

	s, rec := setupStore(t)
	boom := errors.New("rule violated")
	err := s.Update(context.Background(), func(tx Tx) error {
		if err := tx.PutSession(&models.GameSession{ID: "s1", Status: models.SessionWaiting}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	_ = s.View(context.Background(), func(tx Tx) error {
		if _, err := tx.Session("s1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("session persisted despite failure: %v", err)
		}
		return nil
	})
	if len(rec.all()) != 0 {
		t.Error("failed transaction must not notify")
	}
}

func TestPlayersAreScopedAndOrdered(t *testing.T) {
	t.Parallel()

	s, rec := setupStore(t)
	base := time.Now()
	err := s.Update(context.Background(), func(tx Tx) error {
		for i, uid := range []string{"zed", "amy", "bob"} {
			if err := tx.PutPlayer(&models.GamePlayer{
				ID: "p-" + uid, SessionID: "s1", UserID: uid,
				Status: models.PlayerWaiting, JoinedAt: base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				return err
			}
		}
		return tx.PutPlayer(&models.GamePlayer{ID: "other", SessionID: "s10", UserID: "amy", JoinedAt: base})
	})
	if err != nil {
		t.Fatal(err)
	}

	var players []models.GamePlayer
	_ = s.View(context.Background(), func(tx Tx) error {
		players, err = tx.Players("s1")
		return err
	})
	if len(players) != 3 {
		t.Fatalf("got %d players, want 3", len(players))
	}
	for i, want := range []string{"zed", "amy", "bob"} {
		if players[i].UserID != want {
			t.Errorf("players[%d] = %s, want %s (join order)", i, players[i].UserID, want)
		}
	}

	if batches := rec.all(); len(batches) != 1 || len(batches[0]) != 4 {
		t.Errorf("expected one batch of 4 changes, got %+v", batches)
	}
}

func TestChangeOpsCollapseWithinTransaction(t *testing.T) {
	t.Parallel()

	s, rec := setupStore(t)
	err := s.Update(context.Background(), func(tx Tx) error {
		p := &models.GamePlayer{ID: "p1", SessionID: "s1", UserID: "u1", Status: models.PlayerWaiting}
		if err := tx.PutPlayer(p); err != nil {
			return err
		}
		p.Status = models.PlayerReady
		return tx.PutPlayer(p)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Update(context.Background(), func(tx Tx) error {
		p, err := tx.Player("s1", "u1")
		if err != nil {
			return err
		}
		p.Status = models.PlayerPlaying
		if err := tx.PutPlayer(p); err != nil {
			return err
		}
		return tx.DeletePlayer("s1", "u1")
	})
	if err != nil {
		t.Fatal(err)
	}

	batches := rec.all()
	if len(batches) != 2 {
		t.Fatalf("got %d batches", len(batches))
	}
	if len(batches[0]) != 1 || batches[0][0].Op != OpInsert {
		t.Errorf("first batch = %+v, want single insert", batches[0])
	}
	if len(batches[1]) != 1 || batches[1][0].Op != OpDelete {
		t.Errorf("second batch = %+v, want single delete", batches[1])
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	t.Parallel()

	s, _ := setupStore(t)
	putSession(t, s, &models.GameSession{ID: "s1", Status: models.SessionWaiting, MaxPlayers: 100})

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(context.Background(), func(tx Tx) error {
				gs, err := tx.Session("s1")
				if err != nil {
					return err
				}
				gs.CurrentPlayers++
				return tx.PutSession(gs)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	_ = s.View(context.Background(), func(tx Tx) error {
		gs, err := tx.Session("s1")
		if err != nil {
			t.Fatal(err)
		}
		if gs.CurrentPlayers != writers {
			t.Errorf("CurrentPlayers = %d, want %d (lost update)", gs.CurrentPlayers, writers)
		}
		return nil
	})
}

func TestListSessions(t *testing.T) {
	t.Parallel()

	s, _ := setupStore(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.GameSession{
		{ID: "a", GameID: "chess", HostID: "h1", Status: models.SessionWaiting, CurrentPlayers: 1, CreatedAt: base},
		{ID: "b", GameID: "chess", HostID: "h2", Status: models.SessionPlaying, CurrentPlayers: 4, CreatedAt: base.Add(time.Minute)},
		{ID: "c", GameID: "go", HostID: "h1", Status: models.SessionWaiting, CurrentPlayers: 2, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "d", GameID: "chess", HostID: "h1", Status: models.SessionWaiting, CurrentPlayers: 3, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range rows {
		putSession(t, s, &rows[i])
	}

	ids := func(sessions []models.GameSession) string {
		out := ""
		for _, gs := range sessions {
			out += gs.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter models.SessionFilter
		want   string
	}{
		{"default newest first", models.SessionFilter{}, "dcba"},
		{"by game", models.SessionFilter{GameID: "chess"}, "dba"},
		{"by status", models.SessionFilter{Status: models.SessionWaiting}, "dca"},
		{"by host", models.SessionFilter{HostID: "h1", SortOrder: "asc"}, "acd"},
		{"by players desc", models.SessionFilter{SortBy: models.SortByCurrentPlayers}, "bdca"},
		{"by players asc", models.SessionFilter{SortBy: models.SortByCurrentPlayers, SortOrder: "asc"}, "acdb"},
		{"limit", models.SessionFilter{Limit: 2}, "dc"},
		{"offset", models.SessionFilter{Offset: 1, Limit: 2}, "cb"},
		{"offset past end", models.SessionFilter{Offset: 10}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSessions(context.Background(), tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if ids(got) != tt.want {
				t.Errorf("got %q, want %q", ids(got), tt.want)
			}
		})
	}
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	s, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Update(ctx, func(Tx) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Update err = %v", err)
	}
	if err := s.View(ctx, func(Tx) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("View err = %v", err)
	}
	if _, err := s.ListSessions(ctx, models.SessionFilter{}); !errors.Is(err, context.Canceled) {
		t.Errorf("ListSessions err = %v", err)
	}
}

func TestOpenOnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := Open(Options{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	putSession(t, s, &models.GameSession{ID: "persisted", Status: models.SessionWaiting})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(Options{Dir: dir}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.View(context.Background(), func(tx Tx) error {
		_, err := tx.Session("persisted")
		return err
	}); err != nil {
		t.Errorf("session not persisted: %v", err)
	}

	if _, err := Open(Options{}, nil); err == nil {
		t.Error("expected error without a directory")
	}
}
