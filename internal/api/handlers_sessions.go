// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/models"
	"github.com/tomtom215/gamebridge/internal/validation"
)

// defaultSessionPage is the list size when no limit is given.
const defaultSessionPage = 50

// ListSessions handles GET /api/v1/sessions.
//
// Query parameters: game_id, status, host_id, sort_by (created_at,
// current_players), sort_order (asc, desc), limit, offset.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.SessionFilter{
		GameID:    q.Get("game_id"),
		Status:    models.SessionStatus(q.Get("status")),
		HostID:    q.Get("host_id"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", defaultSessionPage); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if verr := validation.ValidateStruct(&filter); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	sessions, err := h.lobby.ListSessions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, sessions)
}

// CreateSession handles POST /api/v1/sessions. The caller becomes host and
// first player.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	session, err := h.lobby.CreateSession(r.Context(), req.GameID, req.MaxPlayers, req.Metadata)
	if err != nil {
		h.record(r, audit.ActionSessionCreate, audit.TargetSession, "", err)
		writeServiceError(w, r, err)
		return
	}
	h.record(r, audit.ActionSessionCreate, audit.TargetSession, session.ID, nil)
	NewResponseWriter(w, r).Created(session)
}

// GetSession handles GET /api/v1/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.lobby.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, session)
}

// UpdateSessionStatus handles PUT /api/v1/sessions/{sessionID}/status.
// Only the host may change it.
func (h *Handler) UpdateSessionStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionStatusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.lobby.UpdateSessionStatus(r.Context(), sessionID, req.Status)
	h.record(r, audit.ActionSessionStatus, audit.TargetSession, sessionID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, session)
}

// JoinSession handles POST /api/v1/sessions/{sessionID}/join. Joining a
// session the caller is already in returns their existing player row.
func (h *Handler) JoinSession(w http.ResponseWriter, r *http.Request) {
	var req JoinSessionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	player, err := h.lobby.JoinSession(r.Context(), sessionID, req.Metadata)
	h.record(r, audit.ActionSessionJoin, audit.TargetSession, sessionID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, player)
}

// LeaveSession handles POST /api/v1/sessions/{sessionID}/leave.
func (h *Handler) LeaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	err := h.lobby.LeaveSession(r.Context(), sessionID)
	h.record(r, audit.ActionSessionLeave, audit.TargetSession, sessionID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}

// StartGame handles POST /api/v1/sessions/{sessionID}/start.
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.lobby.StartGame(r.Context(), sessionID)
	h.record(r, audit.ActionSessionStart, audit.TargetSession, sessionID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, session)
}

// SessionPlayers handles GET /api/v1/sessions/{sessionID}/players.
func (h *Handler) SessionPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.lobby.SessionPlayers(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, players)
}

// UpdatePlayerStatus handles PUT /api/v1/sessions/{sessionID}/players/me.
func (h *Handler) UpdatePlayerStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlayerStatusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	player, err := h.lobby.UpdatePlayerStatus(r.Context(), chi.URLParam(r, "sessionID"), req.Status, req.Score)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, player)
}
