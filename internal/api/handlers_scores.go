// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/validation"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type gameParam struct {
	GameID string `json:"game_id" validate:"required,gameid"`
	Limit  int    `json:"limit" validate:"min=1,max=100"`
}

func (h *Handler) gameParams(w http.ResponseWriter, r *http.Request, gameID string) (gameParam, bool) {
	limit, err := queryInt(r, "limit", defaultLeaderboardSize)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return gameParam{}, false
	}
	p := gameParam{GameID: gameID, Limit: limit}
	if verr := validation.ValidateStruct(&p); verr != nil {
		writeValidationError(w, r, verr)
		return gameParam{}, false
	}
	return p, true
}

// Leaderboard handles GET /api/v1/games/{gameID}/leaderboard.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	p, ok := h.gameParams(w, r, chi.URLParam(r, "gameID"))
	if !ok {
		return
	}
	entries, err := h.scores.GameLeaderboard(r.Context(), p.GameID, p.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, entries)
}

// MyRank handles GET /api/v1/games/{gameID}/rank. 404 means the caller has
// no score for the game yet.
func (h *Handler) MyRank(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("sign in required")
		return
	}
	p, ok := h.gameParams(w, r, chi.URLParam(r, "gameID"))
	if !ok {
		return
	}
	rank, err := h.scores.UserRank(r.Context(), p.GameID, id.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, rank)
}

// MyScores handles GET /api/v1/me/scores. The optional game_id narrows the
// result to one game.
func (h *Handler) MyScores(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("sign in required")
		return
	}
	gameID := r.URL.Query().Get("game_id")
	limit, err := queryInt(r, "limit", maxLeaderboardSize)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if limit < 1 || limit > maxLeaderboardSize {
		NewResponseWriter(w, r).BadRequest("limit must be between 1 and 100")
		return
	}

	scores, err := h.scores.UserScores(r.Context(), id.UserID, gameID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, scores)
}

// Me handles GET /api/v1/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		NewResponseWriter(w, r).Unauthorized("sign in required")
		return
	}
	WriteSuccess(w, r, id)
}

// tokenResponse is returned by IssueToken.
type tokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// IssueToken handles POST /api/v1/auth/token. It signs a token for any
// user id and is only routed outside production.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if h.jwt == nil {
		NewResponseWriter(w, r).ServiceUnavailable("token signing is not configured")
		return
	}
	var req IssueTokenRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	token, err := h.jwt.GenerateToken(identity.Identity{UserID: req.UserID, Name: req.Name, Avatar: req.Avatar})
	h.record(r, audit.ActionTokenIssue, audit.TargetUser, req.UserID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(tokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(h.config.Security.SessionTimeout.Seconds()),
	})
}
