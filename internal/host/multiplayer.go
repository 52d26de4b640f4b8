// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// startMultiplayer subscribes to the session roster and relay. Roster
// changes reach the guest as PLAYER_* diffs; relay events from other
// embeddings reach it as MULTIPLAYER_EVENT.
func (m *Manager) startMultiplayer() error {
	sid := m.cfg.SessionID

	unsubRoster, err := m.deps.Sessions.SubscribeToSessionPlayers(m.ctx, sid, m.onRoster)
	if err != nil {
		return fmt.Errorf("host: subscribe to roster: %w", err)
	}
	unsubRelay, err := m.deps.Relay.SubscribeRelay(m.ctx, sid, m.onRelay)
	if err != nil {
		unsubRoster()
		return fmt.Errorf("host: subscribe to relay: %w", err)
	}

	m.mu.Lock()
	m.unsubs = append(m.unsubs, unsubRoster, unsubRelay)
	m.mu.Unlock()

	players, err := m.deps.Sessions.SessionPlayers(m.ctx, sid)
	if err != nil {
		m.logger.Warn().Err(err).Msg("initial roster unavailable")
		return nil
	}
	m.rosterMu.Lock()
	if !m.rosterLoaded {
		m.roster = indexPlayers(toPlayers(players))
		m.rosterLoaded = true
	}
	m.rosterMu.Unlock()
	return nil
}

func toPlayers(rows []models.GamePlayer) []protocol.Player {
	out := make([]protocol.Player, 0, len(rows))
	for i := range rows {
		out = append(out, protocol.PlayerFromModel(&rows[i]))
	}
	return out
}

func indexPlayers(players []protocol.Player) map[string]protocol.Player {
	idx := make(map[string]protocol.Player, len(players))
	for _, p := range players {
		idx[p.ID] = p
	}
	return idx
}

func sameScore(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// rosterDiff lists the messages that turn prev into next, in next's order
// followed by departures.
func rosterDiff(prev map[string]protocol.Player, next []protocol.Player) []protocol.Message {
	var out []protocol.Message
	seen := make(map[string]bool, len(next))
	for _, p := range next {
		seen[p.ID] = true
		old, ok := prev[p.ID]
		switch {
		case !ok:
			if msg, err := protocol.New(protocol.TypePlayerJoined, protocol.PlayerJoined{Player: p}); err == nil {
				out = append(out, msg)
			}
		case old.Status != p.Status || !sameScore(old.Score, p.Score):
			if msg, err := protocol.New(protocol.TypePlayerStatusChanged, protocol.PlayerStatusChanged{
				PlayerID: p.ID,
				Status:   p.Status,
				Score:    p.Score,
			}); err == nil {
				out = append(out, msg)
			}
		}
	}
	for id := range prev {
		if seen[id] {
			continue
		}
		if msg, err := protocol.New(protocol.TypePlayerLeft, protocol.PlayerLeft{PlayerID: id}); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// onRoster runs on the change feed for every committed roster change.
func (m *Manager) onRoster(rows []models.GamePlayer) {
	if m.State() == StateClosed {
		return
	}
	players := toPlayers(rows)

	m.rosterMu.Lock()
	diff := rosterDiff(m.roster, players)
	m.roster = indexPlayers(players)
	m.rosterLoaded = true
	m.rosterMu.Unlock()

	if len(diff) == 0 {
		return
	}
	m.mu.Lock()
	embedding := m.embedding
	m.mu.Unlock()
	if embedding != nil {
		for _, msg := range diff {
			if err := embedding.Channel().Post(msg); err != nil {
				m.logger.Debug().Err(err).Str("type", string(msg.Type)).Msg("roster update not delivered")
			}
		}
	}
	if m.cb.OnPlayersUpdated != nil {
		m.cb.OnPlayersUpdated(players)
	}
}

// onRelay forwards events published by other embeddings of the session.
func (m *Manager) onRelay(ctx context.Context, origin string, ev protocol.MultiplayerEvent) {
	if origin == m.id || m.State() == StateClosed {
		return
	}
	if err := m.post(protocol.TypeMultiplayerEvent, ev); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("event", ev.Type).Msg("relayed event not delivered")
	}
	if m.cb.OnMultiplayerEvent != nil {
		m.cb.OnMultiplayerEvent(ev)
	}
}

// snapshot returns the cached roster.
func (m *Manager) snapshot() []protocol.Player {
	m.rosterMu.Lock()
	defer m.rosterMu.Unlock()
	out := make([]protocol.Player, 0, len(m.roster))
	for _, p := range m.roster {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// refreshRoster re-reads the roster, replaces the cache and returns it.
func (m *Manager) refreshRoster(ctx context.Context) ([]protocol.Player, error) {
	rows, err := m.deps.Sessions.SessionPlayers(ctx, m.cfg.SessionID)
	if err != nil {
		return nil, err
	}
	players := toPlayers(rows)
	m.rosterMu.Lock()
	m.roster = indexPlayers(players)
	m.rosterLoaded = true
	m.rosterMu.Unlock()
	return players, nil
}

func (m *Manager) handleGetSessionPlayers(ctx context.Context, embedding Embedding, msg protocol.Message) string {
	if !m.cfg.IsMultiplayer {
		m.reply(ctx, embedding, msg, protocol.TypeSessionPlayers, protocol.SessionPlayers{Players: []protocol.Player{}})
		return resultIgnored
	}

	result := resultOK
	players, err := m.refreshRoster(ctx)
	if err != nil {
		// Serve the cached roster rather than leave the guest waiting.
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to fetch roster")
		players = m.snapshot()
		result = resultError
	}
	m.reply(ctx, embedding, msg, protocol.TypeSessionPlayers, protocol.SessionPlayers{Players: players})
	if m.cb.OnPlayersUpdated != nil {
		m.cb.OnPlayersUpdated(players)
	}
	return result
}

func (m *Manager) handleUpdatePlayerStatus(ctx context.Context, embedding Embedding, msg protocol.Message) string {
	if !m.cfg.IsMultiplayer || !m.authed {
		logging.Ctx(ctx).Debug().Msg("player status update outside an authenticated multiplayer session ignored")
		return resultIgnored
	}
	var req protocol.UpdatePlayerStatus
	if err := msg.Decode(&req); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("malformed UPDATE_PLAYER_STATUS ignored")
		return resultError
	}
	if req.PlayerID != "" && req.PlayerID != m.ident.UserID {
		logging.Ctx(ctx).Warn().Str("claimed_player_id", req.PlayerID).Msg("guest tried to update another player, using the viewer")
	}

	if _, err := m.deps.Sessions.UpdatePlayerStatus(ctx, m.cfg.SessionID, req.Status, req.Score); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("status", string(req.Status)).Msg("failed to update player status")
		return resultError
	}

	players, err := m.refreshRoster(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to refresh roster after status update")
		return resultError
	}
	m.send(ctx, embedding, protocol.TypeSessionPlayers, protocol.SessionPlayers{Players: players})
	if m.cb.OnPlayersUpdated != nil {
		m.cb.OnPlayersUpdated(players)
	}
	return resultOK
}

func (m *Manager) handleSendMultiplayerEvent(ctx context.Context, embedding Embedding, msg protocol.Message) string {
	if !m.cfg.IsMultiplayer || !m.authed {
		logging.Ctx(ctx).Debug().Msg("multiplayer event outside an authenticated multiplayer session ignored")
		return resultIgnored
	}
	var req protocol.SendMultiplayerEvent
	if err := msg.Decode(&req); err != nil || req.Event.Type == "" {
		logging.Ctx(ctx).Debug().Err(err).Msg("malformed SEND_MULTIPLAYER_EVENT ignored")
		return resultError
	}
	if (req.GameID != "" && req.GameID != m.cfg.GameID) || (req.SessionID != "" && req.SessionID != m.cfg.SessionID) {
		logging.Ctx(ctx).Warn().
			Str("claimed_game_id", req.GameID).
			Str("claimed_session_id", req.SessionID).
			Msg("guest addressed another game or session, relaying to its own")
	}

	// The host vouches for the sender. The game and session are the
	// embedding's own, whatever the guest claimed.
	ev := req.Event
	ev.SenderID = m.ident.UserID
	if ev.Timestamp == 0 {
		ev.Timestamp = m.now().UnixMilli()
	}

	if m.cb.OnMultiplayerEvent != nil {
		m.cb.OnMultiplayerEvent(ev)
	}
	// The echo carries the viewer's own sender id, so the guest drops it.
	m.send(ctx, embedding, protocol.TypeMultiplayerEvent, ev)
	if err := m.deps.Relay.PublishRelay(ctx, m.cfg.SessionID, m.id, ev); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event", ev.Type).Msg("failed to relay multiplayer event")
		return resultError
	}
	return resultOK
}
