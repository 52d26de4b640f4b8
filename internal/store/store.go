// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package store

import (
	"context"
	"errors"

	"github.com/tomtom215/gamebridge/internal/models"
)

// ErrNotFound is returned for a missing session or player row.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a transaction still conflicts after retries.
var ErrConflict = errors.New("store: transaction conflict")

// ChangeKind names the table a Change touched.
type ChangeKind string

const (
	KindSession ChangeKind = "session"
	KindPlayer  ChangeKind = "player"
)

// Op is the mutation applied to a row.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed row mutation. UserID is empty for session
// changes.
type Change struct {
	Kind      ChangeKind `json:"kind"`
	Op        Op         `json:"op"`
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id,omitempty"`
}

// Tx reads and writes rows inside one transaction. Returned rows are copies;
// callers write them back with the Put methods.
type Tx interface {
	Session(id string) (*models.GameSession, error)
	PutSession(s *models.GameSession) error
	Player(sessionID, userID string) (*models.GamePlayer, error)
	PutPlayer(p *models.GamePlayer) error
	DeletePlayer(sessionID, userID string) error
	Players(sessionID string) ([]models.GamePlayer, error)
}

// Store is the lobby's persistence boundary.
type Store interface {
	// Update runs fn in a read-write transaction. fn may run more than once
	// when the transaction conflicts; it must not have side effects outside
	// tx.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// ListSessions returns sessions matching filter.
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.GameSession, error)

	Close() error
}

// Notifier receives the changes of each committed transaction.
type Notifier interface {
	Notify(ctx context.Context, changes []Change)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, changes []Change)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, changes []Change) {
	f(ctx, changes)
}
