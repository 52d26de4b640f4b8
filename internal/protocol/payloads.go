// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package protocol

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/gamebridge/internal/models"
)

// GameReady is the GAME_READY payload.
type GameReady struct {
	GameID        string `json:"gameId"`
	IsMultiplayer bool   `json:"isMultiplayer"`
	SessionID     string `json:"sessionId,omitempty"`
}

// UserInfo is the USER_INFO payload. ID is null for anonymous users.
type UserInfo struct {
	ID              *string `json:"id"`
	IsAuthenticated bool    `json:"isAuthenticated"`
}

// AnonymousUser is the USER_INFO payload for an unauthenticated viewer.
func AnonymousUser() UserInfo {
	return UserInfo{ID: nil, IsAuthenticated: false}
}

// AuthenticatedUser is the USER_INFO payload for userID.
func AuthenticatedUser(userID string) UserInfo {
	return UserInfo{ID: &userID, IsAuthenticated: true}
}

// SaveScore is the SAVE_SCORE payload. GameID and UserID are advisory; the
// host substitutes its own values.
type SaveScore struct {
	Score    float64                `json:"score"`
	GameID   string                 `json:"gameId,omitempty"`
	UserID   string                 `json:"userId,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ScoreSaved is the SCORE_SAVED payload.
type ScoreSaved struct {
	Success bool `json:"success"`
}

// ScoreError is the SCORE_ERROR payload.
type ScoreError struct {
	Error string `json:"error"`
}

// GameOver is the GAME_OVER payload.
type GameOver struct {
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Player is the guest-side roster view of a participant. ID is the
// participant's user id.
type Player struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Avatar   string                 `json:"avatar,omitempty"`
	Status   models.PlayerStatus    `json:"status"`
	Score    *float64               `json:"score,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// PlayerFromModel converts a lobby row into its roster view. The display name
// comes from row metadata when present.
func PlayerFromModel(p *models.GamePlayer) Player {
	out := Player{
		ID:       p.UserID,
		Name:     p.UserID,
		Status:   p.Status,
		Score:    p.Score,
		Metadata: p.Metadata,
	}
	if name, ok := p.Metadata["name"].(string); ok && name != "" {
		out.Name = name
	}
	if avatar, ok := p.Metadata["avatar"].(string); ok {
		out.Avatar = avatar
	}
	return out
}

// GetSessionPlayers is the GET_SESSION_PLAYERS payload.
type GetSessionPlayers struct {
	GameID    string `json:"gameId"`
	SessionID string `json:"sessionId"`
}

// SessionPlayers is the SESSION_PLAYERS payload.
type SessionPlayers struct {
	Players []Player `json:"players"`
}

// PlayerJoined is the PLAYER_JOINED payload.
type PlayerJoined struct {
	Player Player `json:"player"`
}

// PlayerLeft is the PLAYER_LEFT payload.
type PlayerLeft struct {
	PlayerID string `json:"playerId"`
}

// PlayerStatusChanged is the PLAYER_STATUS_CHANGED payload.
type PlayerStatusChanged struct {
	PlayerID string              `json:"playerId"`
	Status   models.PlayerStatus `json:"status"`
	Score    *float64            `json:"score,omitempty"`
}

// UpdatePlayerStatus is the UPDATE_PLAYER_STATUS payload.
type UpdatePlayerStatus struct {
	GameID    string              `json:"gameId"`
	SessionID string              `json:"sessionId"`
	PlayerID  string              `json:"playerId"`
	Status    models.PlayerStatus `json:"status"`
	Score     *float64            `json:"score,omitempty"`
}

// MultiplayerEvent is a game-defined event shared between session
// participants, and the MULTIPLAYER_EVENT payload. Timestamp is epoch
// milliseconds.
type MultiplayerEvent struct {
	Type      string          `json:"type"`
	SenderID  string          `json:"senderId"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SendMultiplayerEvent is the SEND_MULTIPLAYER_EVENT payload: the event to
// relay and the session it belongs to.
type SendMultiplayerEvent struct {
	GameID    string           `json:"gameId"`
	SessionID string           `json:"sessionId"`
	Event     MultiplayerEvent `json:"event"`
}
