// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package lobby

import (
	"context"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/store"
)

func touches(changes []store.Change, kind store.ChangeKind, sessionID string) bool {
	for _, c := range changes {
		if c.Kind == kind && c.SessionID == sessionID {
			return true
		}
	}
	return false
}

// SubscribeToSession calls fn with the session row after every committed
// change to it. The returned function unsubscribes.
func (s *Service) SubscribeToSession(ctx context.Context, sessionID string, fn func(models.GameSession)) (func(), error) {
	if s.feed == nil {
		return nil, wrap("subscribe_session", ErrNoChangeFeed)
	}
	return s.feed.SubscribeChanges(ctx, func(msgCtx context.Context, changes []store.Change) {
		if !touches(changes, store.KindSession, sessionID) {
			return
		}
		session, err := s.GetSession(msgCtx, sessionID)
		if err != nil {
			logging.Ctx(msgCtx).Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh session")
			return
		}
		fn(*session)
	})
}

// SubscribeToSessionPlayers calls fn with the full roster after every
// committed change to any of the session's player rows.
func (s *Service) SubscribeToSessionPlayers(ctx context.Context, sessionID string, fn func([]models.GamePlayer)) (func(), error) {
	if s.feed == nil {
		return nil, wrap("subscribe_players", ErrNoChangeFeed)
	}
	return s.feed.SubscribeChanges(ctx, func(msgCtx context.Context, changes []store.Change) {
		if !touches(changes, store.KindPlayer, sessionID) {
			return
		}
		players, err := s.SessionPlayers(msgCtx, sessionID)
		if err != nil {
			logging.Ctx(msgCtx).Warn().Err(err).Str("session_id", sessionID).Msg("failed to refresh roster")
			return
		}
		fn(players)
	})
}
