// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
)

const (
	sessionKeyPrefix = "session:"
	playerKeyPrefix  = "player:"

	// maxTxnRetries bounds retries of a conflicting Update.
	maxTxnRetries = 32
)

// Options configures the Badger database.
type Options struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir string

	InMemory   bool
	SyncWrites bool
}

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	notifier Notifier
	owned    bool
	logger   zerolog.Logger
}

// Open opens (or creates) a Badger database and wraps it.
func Open(opts Options, notifier Notifier) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("store: data directory is required")
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithLogger(newBadgerLogger())

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	s := New(db, notifier)
	s.owned = true
	return s, nil
}

// New wraps an already open database. The caller keeps ownership of db.
func New(db *badger.DB, notifier Notifier) *BadgerStore {
	return &BadgerStore{
		db:       db,
		notifier: notifier,
		logger:   logging.WithComponent("store"),
	}
}

// SetNotifier replaces the change notifier.
func (s *BadgerStore) SetNotifier(n Notifier) {
	s.notifier = n
}

// Close closes the database if Open created it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Update implements Store.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var changes []Change
		err := s.db.Update(func(txn *badger.Txn) error {
			tx := &badgerTx{txn: txn}
			if err := fn(tx); err != nil {
				return err
			}
			changes = tx.changes
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			metrics.StoreTxnConflicts.Inc()
			s.logger.Debug().Int("attempt", attempt+1).Msg("transaction conflict, retrying")
			continue
		}
		if err != nil {
			return err
		}

		if len(changes) > 0 && s.notifier != nil {
			s.notifier.Notify(ctx, changes)
		}
		return nil
	}
	return ErrConflict
}

// View implements Store.
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, readOnly: true})
	})
}

// ListSessions implements Store. Filtering and ordering happen in memory
// over the session prefix.
func (s *BadgerStore) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.GameSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sessions []models.GameSession
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var gs models.GameSession
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &gs)
			}); err != nil {
				return fmt.Errorf("decode session: %w", err)
			}
			if matches(&gs, filter) {
				sessions = append(sessions, gs)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}

	sortSessions(sessions, filter.SortBy, filter.SortOrder)
	return paginate(sessions, filter.Offset, filter.Limit), nil
}

func matches(s *models.GameSession, f models.SessionFilter) bool {
	if f.GameID != "" && s.GameID != f.GameID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.HostID != "" && s.HostID != f.HostID {
		return false
	}
	return true
}

func sortSessions(sessions []models.GameSession, sortBy, order string) {
	asc := strings.EqualFold(order, "asc")
	less := func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if sortBy == models.SortByCurrentPlayers && a.CurrentPlayers != b.CurrentPlayers {
			if asc {
				return a.CurrentPlayers < b.CurrentPlayers
			}
			return a.CurrentPlayers > b.CurrentPlayers
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.SliceStable(sessions, less)
}

func paginate(sessions []models.GameSession, offset, limit int) []models.GameSession {
	if offset > 0 {
		if offset >= len(sessions) {
			return []models.GameSession{}
		}
		sessions = sessions[offset:]
	}
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	if sessions == nil {
		return []models.GameSession{}
	}
	return sessions
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func playerPrefix(sessionID string) string {
	return playerKeyPrefix + sessionID + ":"
}

func playerKey(sessionID, userID string) []byte {
	return []byte(playerPrefix(sessionID) + userID)
}

// badgerTx implements Tx over a badger transaction and records the changes
// it makes.
type badgerTx struct {
	txn      *badger.Txn
	readOnly bool
	changes  []Change
}

func (t *badgerTx) record(c Change) {
	for i := range t.changes {
		if t.changes[i].Kind == c.Kind && t.changes[i].SessionID == c.SessionID && t.changes[i].UserID == c.UserID {
			// An insert followed by updates is still an insert.
			if t.changes[i].Op != OpInsert || c.Op == OpDelete {
				t.changes[i].Op = c.Op
			}
			return
		}
	}
	t.changes = append(t.changes, c)
}

func (t *badgerTx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (t *badgerTx) Session(id string) (*models.GameSession, error) {
	item, err := t.txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var gs models.GameSession
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &gs)
	}); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &gs, nil
}

func (t *badgerTx) PutSession(gs *models.GameSession) error {
	if gs.ID == "" {
		return errors.New("store: session id is required")
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionKey(gs.ID)
	existed, err := t.exists(key)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if err := t.txn.Set(key, data); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	op := OpInsert
	if existed {
		op = OpUpdate
	}
	t.record(Change{Kind: KindSession, Op: op, SessionID: gs.ID})
	return nil
}

func (t *badgerTx) Player(sessionID, userID string) (*models.GamePlayer, error) {
	item, err := t.txn.Get(playerKey(sessionID, userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	var p models.GamePlayer
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &p)
	}); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &p, nil
}

func (t *badgerTx) PutPlayer(p *models.GamePlayer) error {
	if p.SessionID == "" || p.UserID == "" {
		return errors.New("store: player session and user ids are required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	key := playerKey(p.SessionID, p.UserID)
	existed, err := t.exists(key)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}
	if err := t.txn.Set(key, data); err != nil {
		return fmt.Errorf("set player: %w", err)
	}
	op := OpInsert
	if existed {
		op = OpUpdate
	}
	t.record(Change{Kind: KindPlayer, Op: op, SessionID: p.SessionID, UserID: p.UserID})
	return nil
}

func (t *badgerTx) DeletePlayer(sessionID, userID string) error {
	key := playerKey(sessionID, userID)
	existed, err := t.exists(key)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}
	if !existed {
		return ErrNotFound
	}
	if err := t.txn.Delete(key); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	t.record(Change{Kind: KindPlayer, Op: OpDelete, SessionID: sessionID, UserID: userID})
	return nil
}

func (t *badgerTx) Players(sessionID string) ([]models.GamePlayer, error) {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	players := []models.GamePlayer{}
	prefix := []byte(playerPrefix(sessionID))
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var p models.GamePlayer
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return nil, fmt.Errorf("decode player: %w", err)
		}
		players = append(players, p)
	}

	sort.SliceStable(players, func(i, j int) bool {
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}
