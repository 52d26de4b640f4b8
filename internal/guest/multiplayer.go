// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package guest

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// GetSessionPlayers fetches the roster from the host and replaces the local
// copy.
func (s *SDK) GetSessionPlayers(ctx context.Context) ([]protocol.Player, error) {
	if !s.cfg.IsMultiplayer {
		return nil, ErrNotMultiplayer
	}
	reply, err := s.request(ctx, protocol.TypeGetSessionPlayers, protocol.GetSessionPlayers{
		GameID:    s.cfg.GameID,
		SessionID: s.cfg.SessionID,
	})
	if err != nil {
		return nil, err
	}
	if reply.Type != protocol.TypeSessionPlayers {
		return nil, ErrUnexpectedReply
	}
	var sp protocol.SessionPlayers
	if err := reply.Decode(&sp); err != nil {
		return nil, err
	}
	return append([]protocol.Player(nil), sp.Players...), nil
}

// UpdateStatus reports the local player's status, and optionally score, to
// the host and applies it to the local roster.
func (s *SDK) UpdateStatus(status models.PlayerStatus, score *float64) error {
	if !s.cfg.IsMultiplayer {
		return ErrNotMultiplayer
	}
	if !status.Valid() {
		return fmt.Errorf("guest: invalid player status %q", status)
	}

	userID := s.UserID()
	if err := s.post(protocol.TypeUpdatePlayerStatus, protocol.UpdatePlayerStatus{
		GameID:    s.cfg.GameID,
		SessionID: s.cfg.SessionID,
		PlayerID:  userID,
		Status:    status,
		Score:     score,
	}); err != nil {
		return err
	}
	if userID != "" {
		s.applyStatus(userID, status, score)
	}
	return nil
}

// SendMultiplayerEvent asks the host to relay an event to the other session
// participants. The event is not delivered to local listeners.
func (s *SDK) SendMultiplayerEvent(eventType string, data interface{}) error {
	if !s.cfg.IsMultiplayer {
		return ErrNotMultiplayer
	}
	if eventType == "" {
		return fmt.Errorf("guest: multiplayer event type is required")
	}

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("guest: encode multiplayer event: %w", err)
		}
		raw = b
	}

	return s.post(protocol.TypeSendMultiplayerEvent, protocol.SendMultiplayerEvent{
		GameID:    s.cfg.GameID,
		SessionID: s.cfg.SessionID,
		Event: protocol.MultiplayerEvent{
			Type:      eventType,
			SenderID:  s.UserID(),
			Data:      raw,
			Timestamp: s.now().UnixMilli(),
		},
	})
}

// Players returns a copy of the roster.
func (s *SDK) Players() []protocol.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Player, len(s.players))
	copy(out, s.players)
	return out
}

// PlayerByID looks a participant up by user id.
func (s *SDK) PlayerByID(id string) (protocol.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.ID == id {
			return p, true
		}
	}
	return protocol.Player{}, false
}

func (s *SDK) receiveMultiplayerEvent(ev protocol.MultiplayerEvent) {
	if me := s.UserID(); me != "" && ev.SenderID == me {
		return
	}
	s.bus.Emit(MultiplayerEventName(ev.Type), ReceivedEvent{
		SenderID:  ev.SenderID,
		Data:      ev.Data,
		Timestamp: ev.Timestamp,
	})
}

func (s *SDK) setRoster(players []protocol.Player) {
	s.mu.Lock()
	s.players = append([]protocol.Player(nil), players...)
	s.mu.Unlock()
}

func (s *SDK) addPlayer(p protocol.Player) {
	s.mu.Lock()
	replaced := false
	for i := range s.players {
		if s.players[i].ID == p.ID {
			s.players[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.players = append(s.players, p)
	}
	s.mu.Unlock()

	s.bus.Emit(EventPlayerJoined, p)
	s.bus.Emit(EventPlayersUpdated, s.Players())
}

func (s *SDK) removePlayer(id string) {
	s.mu.Lock()
	var (
		removed protocol.Player
		found   bool
	)
	for i := range s.players {
		if s.players[i].ID == id {
			removed = s.players[i]
			s.players = append(s.players[:i], s.players[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return
	}
	s.bus.Emit(EventPlayerLeft, removed)
	s.bus.Emit(EventPlayersUpdated, s.Players())
}

func (s *SDK) applyStatus(id string, status models.PlayerStatus, score *float64) {
	s.mu.Lock()
	var (
		updated protocol.Player
		found   bool
	)
	for i := range s.players {
		if s.players[i].ID == id {
			s.players[i].Status = status
			if score != nil {
				v := *score
				s.players[i].Score = &v
			}
			updated = s.players[i]
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return
	}
	s.bus.Emit(EventPlayerStatusChanged, updated)
	s.bus.Emit(EventPlayersUpdated, s.Players())
}
