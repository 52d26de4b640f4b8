// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package protocol

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Type tags a Message.
type Type string

// Guest to host.
const (
	TypeGameReady            Type = "GAME_READY"
	TypeGetUserInfo          Type = "GET_USER_INFO"
	TypeSaveScore            Type = "SAVE_SCORE"
	TypeGameOver             Type = "GAME_OVER"
	TypeGetSessionPlayers    Type = "GET_SESSION_PLAYERS"
	TypeUpdatePlayerStatus   Type = "UPDATE_PLAYER_STATUS"
	TypeSendMultiplayerEvent Type = "SEND_MULTIPLAYER_EVENT"
)

// Host to guest.
const (
	TypeUserInfo            Type = "USER_INFO"
	TypeScoreSaved          Type = "SCORE_SAVED"
	TypeScoreError          Type = "SCORE_ERROR"
	TypePauseGame           Type = "PAUSE_GAME"
	TypeResumeGame          Type = "RESUME_GAME"
	TypeRestartGame         Type = "RESTART_GAME"
	TypeSessionPlayers      Type = "SESSION_PLAYERS"
	TypePlayerJoined        Type = "PLAYER_JOINED"
	TypePlayerLeft          Type = "PLAYER_LEFT"
	TypePlayerStatusChanged Type = "PLAYER_STATUS_CHANGED"
	TypeMultiplayerEvent    Type = "MULTIPLAYER_EVENT"
)

// MaxMessageSize bounds an encoded message.
const MaxMessageSize = 512 * 1024

var (
	// ErrMissingType is returned for a message without a type tag.
	ErrMissingType = errors.New("protocol: message has no type")

	// ErrTooLarge is returned for a message over MaxMessageSize.
	ErrTooLarge = errors.New("protocol: message too large")
)

// Message is the only unit crossing the isolation boundary.
type Message struct {
	Type    Type            `json:"type"`
	ID      string          `json:"id,omitempty"`
	ReplyTo string          `json:"replyTo,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// New builds an event message carrying payload. A nil payload yields a
// message without data.
func New(t Type, payload interface{}) (Message, error) {
	msg := Message{Type: t}
	if payload == nil {
		return msg, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("protocol: encode %s payload: %w", t, err)
	}
	msg.Data = data
	return msg, nil
}

// NewRequest builds a message with a fresh correlation id.
func NewRequest(t Type, payload interface{}) (Message, error) {
	msg, err := New(t, payload)
	if err != nil {
		return Message{}, err
	}
	msg.ID = uuid.NewString()
	return msg, nil
}

// Reply builds a message answering m.
func (m Message) Reply(t Type, payload interface{}) (Message, error) {
	reply, err := New(t, payload)
	if err != nil {
		return Message{}, err
	}
	reply.ReplyTo = m.ID
	return reply, nil
}

// IsReply reports whether m answers a request.
func (m Message) IsReply() bool {
	return m.ReplyTo != ""
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (m Message) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("protocol: decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Encode serializes m for a byte transport.
func Encode(m Message) ([]byte, error) {
	if m.Type == "" {
		return nil, ErrMissingType
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode message: %w", err)
	}
	if len(b) > MaxMessageSize {
		return nil, ErrTooLarge
	}
	return b, nil
}

// Decode parses a message received from a byte transport.
func Decode(b []byte) (Message, error) {
	if len(b) > MaxMessageSize {
		return Message{}, ErrTooLarge
	}
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("protocol: decode message: %w", err)
	}
	if m.Type == "" {
		return Message{}, ErrMissingType
	}
	return m, nil
}
