// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package models

import "time"

// SessionStatus is the lifecycle state of a GameSession.
type SessionStatus string

const (
	SessionWaiting   SessionStatus = "waiting"
	SessionPlaying   SessionStatus = "playing"
	SessionCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionWaiting, SessionPlaying, SessionCompleted:
		return true
	}
	return false
}

// rank orders statuses along waiting -> playing -> completed.
func (s SessionStatus) rank() int {
	switch s {
	case SessionWaiting:
		return 0
	case SessionPlaying:
		return 1
	case SessionCompleted:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. Re-asserting the current status is allowed.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// PlayerStatus is a participant's presence in a session.
type PlayerStatus string

const (
	PlayerWaiting      PlayerStatus = "waiting"
	PlayerReady        PlayerStatus = "ready"
	PlayerPlaying      PlayerStatus = "playing"
	PlayerDisconnected PlayerStatus = "disconnected"
)

// Valid reports whether s is a known status.
func (s PlayerStatus) Valid() bool {
	switch s {
	case PlayerWaiting, PlayerReady, PlayerPlaying, PlayerDisconnected:
		return true
	}
	return false
}

// GameSession is one multiplayer lobby/match instance.
// Invariant: 0 <= CurrentPlayers <= MaxPlayers.
type GameSession struct {
	ID             string                 `json:"id"`
	GameID         string                 `json:"game_id"`
	HostID         string                 `json:"host_id"`
	Status         SessionStatus          `json:"status"`
	MaxPlayers     int                    `json:"max_players"`
	CurrentPlayers int                    `json:"current_players"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// IsFull reports whether no further new players can join.
func (s *GameSession) IsFull() bool {
	return s.CurrentPlayers >= s.MaxPlayers
}

// GamePlayer is one participant row. At most one exists per (SessionID, UserID).
type GamePlayer struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id"`
	Status    PlayerStatus           `json:"status"`
	JoinedAt  time.Time              `json:"joined_at"`
	Score     *float64               `json:"score,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Sort keys accepted by SessionFilter.SortBy.
const (
	SortByCreatedAt      = "created_at"
	SortByCurrentPlayers = "current_players"
)

// SessionFilter narrows and orders ListSessions results. Zero values mean
// "no constraint"; SortBy defaults to created_at and SortOrder to desc.
type SessionFilter struct {
	GameID    string        `json:"game_id,omitempty" validate:"omitempty,max=128"`
	Status    SessionStatus `json:"status,omitempty" validate:"omitempty,oneof=waiting playing completed"`
	HostID    string        `json:"host_id,omitempty" validate:"omitempty,max=128"`
	SortBy    string        `json:"sort_by,omitempty" validate:"omitempty,oneof=created_at current_players"`
	SortOrder string        `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit     int           `json:"limit,omitempty" validate:"min=0,max=1000"`
	Offset    int           `json:"offset,omitempty" validate:"min=0"`
}
