// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"context"
	"sync"

	"github.com/tomtom215/gamebridge/internal/changefeed"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/store"
)

// ChangeSource delivers committed store changes.
type ChangeSource interface {
	SubscribeChanges(ctx context.Context, fn changefeed.ChangeHandler) (func(), error)
}

// SessionChangedData is the session_changed payload.
type SessionChangedData struct {
	SessionID string           `json:"session_id"`
	Kind      store.ChangeKind `json:"kind"`
	Op        store.Op         `json:"op"`
	UserID    string           `json:"user_id,omitempty"`
}

// FeedSubscriber forwards session and player changes to observers of the
// session id, so lobby pages refresh without polling.
type FeedSubscriber struct {
	hub    *Hub
	source ChangeSource

	mu      sync.Mutex
	running bool
	unsub   func()
}

// NewFeedSubscriber creates a change feed to hub bridge.
func NewFeedSubscriber(hub *Hub, source ChangeSource) *FeedSubscriber {
	return &FeedSubscriber{hub: hub, source: source}
}

// Start subscribes to the feed. Calling Start on a running subscriber is a
// no-op.
func (s *FeedSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	unsub, err := s.source.SubscribeChanges(ctx, s.handleChanges)
	if err != nil {
		return err
	}
	s.unsub = unsub
	s.running = true
	logging.Info().Msg("change feed to websocket subscriber started")
	return nil
}

// Stop unsubscribes.
func (s *FeedSubscriber) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	s.unsub()
	s.unsub = nil
	logging.Info().Msg("change feed to websocket subscriber stopped")
}

// Serve implements suture.Service.
func (s *FeedSubscriber) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

func (s *FeedSubscriber) String() string {
	return "feed-subscriber"
}

func (s *FeedSubscriber) handleChanges(_ context.Context, changes []store.Change) {
	for _, c := range changes {
		s.hub.Broadcast(c.SessionID, MessageTypeSessionChanged, SessionChangedData{
			SessionID: c.SessionID,
			Kind:      c.Kind,
			Op:        c.Op,
			UserID:    c.UserID,
		})
	}
}
