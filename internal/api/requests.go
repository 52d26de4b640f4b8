// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gamebridge/internal/models"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 64 << 10

// errEmptyBody is returned by decodeJSON for a body-less request that
// requires one.
var errEmptyBody = errors.New("request body is required")

// CreateSessionRequest is the body of POST /api/v1/sessions.
type CreateSessionRequest struct {
	GameID     string                 `json:"game_id" validate:"required,gameid"`
	MaxPlayers int                    `json:"max_players" validate:"omitempty,min=2,max=64"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// JoinSessionRequest is the optional body of POST /sessions/{id}/join.
type JoinSessionRequest struct {
	Metadata map[string]interface{} `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// UpdateSessionStatusRequest is the body of PUT /sessions/{id}/status.
type UpdateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status" validate:"required,sessionstatus"`
}

// UpdatePlayerStatusRequest is the body of PUT /sessions/{id}/players/me.
type UpdatePlayerStatusRequest struct {
	Status models.PlayerStatus `json:"status" validate:"required,playerstatus"`
	Score  *float64            `json:"score,omitempty"`
}

// CreateEmbedRequest is the body of POST /api/v1/embeds.
type CreateEmbedRequest struct {
	EmbedID       string `json:"embed_id,omitempty" validate:"omitempty,gameid"`
	GameID        string `json:"game_id" validate:"required,gameid"`
	GameURL       string `json:"game_url,omitempty" validate:"omitempty,http_url"`
	Width         int    `json:"width,omitempty" validate:"omitempty,min=1,max=8192"`
	Height        int    `json:"height,omitempty" validate:"omitempty,min=1,max=8192"`
	Fullscreen    bool   `json:"fullscreen,omitempty"`
	IsMultiplayer bool   `json:"is_multiplayer,omitempty"`
	SessionID     string `json:"session_id,omitempty" validate:"required_if=IsMultiplayer true,max=128"`
}

// IssueTokenRequest is the body of the development token endpoint.
type IssueTokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Name   string `json:"name,omitempty" validate:"omitempty,max=128"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// decodeJSON reads a bounded JSON body into dst. An empty body is
// errEmptyBody when required and a no-op otherwise.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, required bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		if required {
			return errEmptyBody
		}
		return nil
	}
	return err
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return n, nil
}
