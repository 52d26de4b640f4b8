// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/gamebridge/internal/changefeed"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/store"
)

const (
	// DefaultMaxPlayers is used when CreateSession gets a non-positive limit.
	DefaultMaxPlayers = 2

	// MaxPlayersLimit caps a session's capacity.
	MaxPlayersLimit = 64

	// MinPlayersToStart is the smallest roster StartGame accepts.
	MinPlayersToStart = 2
)

// ChangeSource delivers committed store changes. *changefeed.Feed
// implements it.
type ChangeSource interface {
	SubscribeChanges(ctx context.Context, fn changefeed.ChangeHandler) (func(), error)
}

// Service implements the session and presence rules. The caller's identity
// comes from the context (see package identity).
//
// Every mutation is one store transaction. Creating a session writes the
// session row with its host already seated; joining and leaving change the
// player row and currentPlayers together, so a crash can never leave a
// seat count that disagrees with the roster. Transaction conflicts are
// retried by the store.
//
// Failures are returned as *Error with a Kind the API layer maps to a
// status code:
//
//   - KindUnauthenticated: no identity in the context
//   - KindForbidden: a non-host tried a host-only transition
//   - KindNotFound: unknown session
//   - KindConflict: full, closed or not startable session
//   - KindInvalid: bad arguments such as an oversized maxPlayers
//   - KindStore: the store itself failed
//
// Example usage:
//
//	svc := lobby.NewService(st, feed)
//	session, err := svc.CreateSession(identity.WithIdentity(ctx, id), "chess", 4, nil)
type Service struct {
	store store.Store
	feed  ChangeSource
	now   func() time.Time
	newID func() string
}

// NewService returns a Service. feed may be nil, in which case the Subscribe
// methods fail with ErrNoChangeFeed.
func NewService(st store.Store, feed ChangeSource) *Service {
	return &Service{
		store: st,
		feed:  feed,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Service) caller(ctx context.Context) (string, error) {
	uid := identity.UserID(ctx)
	if uid == "" {
		return "", ErrUnauthenticated
	}
	return uid, nil
}

// finish wraps err for op, records the outcome and logs store failures.
func (s *Service) finish(ctx context.Context, op string, err error) error {
	err = wrap(op, err)
	metrics.RecordLobbyOperation(op, err)
	if err != nil && KindOf(err) == KindStore {
		logging.Ctx(ctx).Error().Err(err).Str("op", op).Msg("lobby store operation failed")
	}
	return err
}

func notFound(what, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return err
}

// CreateSession creates a waiting session hosted by the caller and seats the
// caller as its first player in the same transaction.
func (s *Service) CreateSession(ctx context.Context, gameID string, maxPlayers int, metadata map[string]interface{}) (*models.GameSession, error) {
	const op = "create_session"
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	if gameID == "" {
		return nil, s.finish(ctx, op, fmt.Errorf("game id is required: %w", ErrInvalidArgument))
	}
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if maxPlayers > MaxPlayersLimit {
		return nil, s.finish(ctx, op, fmt.Errorf("max players %d exceeds %d: %w", maxPlayers, MaxPlayersLimit, ErrInvalidArgument))
	}

	now := s.now().UTC()
	session := &models.GameSession{
		ID:             s.newID(),
		GameID:         gameID,
		HostID:         uid,
		Status:         models.SessionWaiting,
		MaxPlayers:     maxPlayers,
		CurrentPlayers: 1,
		CreatedAt:      now,
		UpdatedAt:      now,
		Metadata:       metadata,
	}
	host := &models.GamePlayer{
		ID:        s.newID(),
		SessionID: session.ID,
		UserID:    uid,
		Status:    models.PlayerWaiting,
		JoinedAt:  now,
	}

	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.PutSession(session); err != nil {
			return err
		}
		return tx.PutPlayer(host)
	})
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}

	logging.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("game_id", gameID).
		Str("host_id", uid).
		Int("max_players", maxPlayers).
		Msg("session created")
	return session, s.finish(ctx, op, nil)
}

// JoinSession seats the caller in a waiting session. A caller who already
// has a row is re-seated without changing the player count, even when the
// session is full.
func (s *Service) JoinSession(ctx context.Context, sessionID string, metadata map[string]interface{}) (*models.GamePlayer, error) {
	const op = "join_session"
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}

	var joined *models.GamePlayer
	err = s.store.Update(ctx, func(tx store.Tx) error {
		session, err := tx.Session(sessionID)
		if err != nil {
			return notFound("session", sessionID, err)
		}
		if session.Status != models.SessionWaiting {
			return fmt.Errorf("session %s is %s: %w", sessionID, session.Status, ErrSessionClosed)
		}

		// A seated player rejoins without a seat check, even when the
		// session is full.
		now := s.now().UTC()
		existing, err := tx.Player(sessionID, uid)
		switch {
		case err == nil:
			existing.Status = models.PlayerWaiting
			if metadata != nil {
				existing.Metadata = metadata
			}
			joined = existing
			return tx.PutPlayer(existing)
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if session.IsFull() {
			return fmt.Errorf("session %s has %d/%d players: %w", sessionID, session.CurrentPlayers, session.MaxPlayers, ErrSessionFull)
		}
		player := &models.GamePlayer{
			ID:        s.newID(),
			SessionID: sessionID,
			UserID:    uid,
			Status:    models.PlayerWaiting,
			JoinedAt:  now,
			Metadata:  metadata,
		}
		session.CurrentPlayers++
		session.UpdatedAt = now
		if err := tx.PutSession(session); err != nil {
			return err
		}
		joined = player
		return tx.PutPlayer(player)
	})
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	return joined, s.finish(ctx, op, nil)
}

// LeaveSession removes the caller's row. When the host leaves the session is
// completed; otherwise the player count drops by one, never below zero.
func (s *Service) LeaveSession(ctx context.Context, sessionID string) error {
	const op = "leave_session"
	uid, err := s.caller(ctx)
	if err != nil {
		return s.finish(ctx, op, err)
	}

	var hostLeft bool
	err = s.store.Update(ctx, func(tx store.Tx) error {
		session, err := tx.Session(sessionID)
		if err != nil {
			return notFound("session", sessionID, err)
		}
		if err := tx.DeletePlayer(sessionID, uid); err != nil {
			return notFound("player", uid, err)
		}

		hostLeft = session.HostID == uid
		if hostLeft {
			session.Status = models.SessionCompleted
		} else if session.CurrentPlayers > 0 {
			session.CurrentPlayers--
		}
		session.UpdatedAt = s.now().UTC()
		return tx.PutSession(session)
	})
	if err != nil {
		return s.finish(ctx, op, err)
	}

	if hostLeft {
		logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("host left, session completed")
	}
	return s.finish(ctx, op, nil)
}

// UpdateSessionStatus moves the session along waiting -> playing ->
// completed. Only the host may call it.
func (s *Service) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) (*models.GameSession, error) {
	const op = "update_session_status"
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	if !status.Valid() {
		return nil, s.finish(ctx, op, fmt.Errorf("session status %q: %w", status, ErrInvalidArgument))
	}

	var updated *models.GameSession
	err = s.store.Update(ctx, func(tx store.Tx) error {
		session, err := tx.Session(sessionID)
		if err != nil {
			return notFound("session", sessionID, err)
		}
		if session.HostID != uid {
			return ErrNotHost
		}
		if !session.Status.CanTransitionTo(status) {
			return fmt.Errorf("%s to %s: %w", session.Status, status, ErrInvalidTransition)
		}
		session.Status = status
		session.UpdatedAt = s.now().UTC()
		updated = session
		return tx.PutSession(session)
	})
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	return updated, s.finish(ctx, op, nil)
}

// UpdatePlayerStatus changes the caller's own row, looked up by session and
// user. score is left untouched when nil.
func (s *Service) UpdatePlayerStatus(ctx context.Context, sessionID string, status models.PlayerStatus, score *float64) (*models.GamePlayer, error) {
	const op = "update_player_status"
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	if !status.Valid() {
		return nil, s.finish(ctx, op, fmt.Errorf("player status %q: %w", status, ErrInvalidArgument))
	}

	var updated *models.GamePlayer
	err = s.store.Update(ctx, func(tx store.Tx) error {
		player, err := tx.Player(sessionID, uid)
		if err != nil {
			return notFound("player", uid, err)
		}
		player.Status = status
		if score != nil {
			v := *score
			player.Score = &v
		}
		updated = player
		return tx.PutPlayer(player)
	})
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}
	return updated, s.finish(ctx, op, nil)
}

// GetSession returns one session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session *models.GameSession
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		session, err = tx.Session(sessionID)
		return notFound("session", sessionID, err)
	})
	if err != nil {
		return nil, s.finish(ctx, "get_session", err)
	}
	return session, nil
}

// ListSessions returns sessions matching filter.
func (s *Service) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.GameSession, error) {
	sessions, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return nil, s.finish(ctx, "list_sessions", err)
	}
	return sessions, nil
}

// SessionPlayers returns the session's roster in join order.
func (s *Service) SessionPlayers(ctx context.Context, sessionID string) ([]models.GamePlayer, error) {
	var players []models.GamePlayer
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.Session(sessionID); err != nil {
			return notFound("session", sessionID, err)
		}
		var err error
		players, err = tx.Players(sessionID)
		return err
	})
	if err != nil {
		return nil, s.finish(ctx, "session_players", err)
	}
	return players, nil
}

// StartGame moves a session to playing once at least MinPlayersToStart
// players are seated and all of them are ready. The caller's own row is then
// marked playing.
func (s *Service) StartGame(ctx context.Context, sessionID string) (*models.GameSession, error) {
	const op = "start_game"
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, s.finish(ctx, op, err)
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.HostID != uid {
		return nil, s.finish(ctx, op, ErrNotHost)
	}
	players, err := s.SessionPlayers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := CanStart(players); err != nil {
		return nil, s.finish(ctx, op, err)
	}

	started, err := s.UpdateSessionStatus(ctx, sessionID, models.SessionPlaying)
	if err != nil {
		return nil, err
	}
	if _, err := s.UpdatePlayerStatus(ctx, sessionID, models.PlayerPlaying, nil); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("failed to mark host playing")
	}
	return started, s.finish(ctx, op, nil)
}

// CanStart reports whether a roster may start a game.
func CanStart(players []models.GamePlayer) error {
	if len(players) < MinPlayersToStart {
		return fmt.Errorf("%d seated: %w", len(players), ErrNotEnoughPlayers)
	}
	for i := range players {
		if players[i].Status != models.PlayerReady {
			return fmt.Errorf("player %s is %s: %w", players[i].UserID, players[i].Status, ErrPlayersNotReady)
		}
	}
	return nil
}
