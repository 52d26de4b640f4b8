// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/validation"
)

// EmbedView describes a live embedding.
type EmbedView struct {
	EmbedID       string `json:"embed_id"`
	GameID        string `json:"game_id"`
	State         string `json:"state"`
	Loading       bool   `json:"loading"`
	IsMultiplayer bool   `json:"is_multiplayer"`
	SessionID     string `json:"session_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Fullscreen    bool   `json:"fullscreen"`

	// GuestURL is the websocket address the game dials. It is only
	// returned to the embed's owner.
	GuestURL string `json:"guest_url,omitempty"`

	// ObserverTopic selects this embed's events on /ws/observe.
	ObserverTopic string `json:"observer_topic"`
}

func (h *Handler) embedView(m *host.Manager, withURL bool) EmbedView {
	cfg := m.Config()
	v := EmbedView{
		EmbedID:       m.ID(),
		GameID:        cfg.GameID,
		State:         m.State().String(),
		Loading:       m.Loading(),
		IsMultiplayer: cfg.IsMultiplayer,
		SessionID:     cfg.SessionID,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Fullscreen:    cfg.Fullscreen,
		ObserverTopic: m.ID(),
	}
	if id, ok := m.Identity(); ok {
		v.UserID = id.UserID
	}
	if withURL {
		if token, ok := h.gateway.Token(m.ID()); ok {
			v.GuestURL = h.gateway.URL(token)
		}
	}
	return v
}

// owns reports whether the caller may control m. Anonymous embeds can be
// controlled by anyone holding their id.
func owns(r *http.Request, m *host.Manager) bool {
	owner, authed := m.Identity()
	if !authed {
		return true
	}
	caller, ok := identity.FromContext(r.Context())
	return ok && caller.UserID == owner.UserID
}

// CreateEmbed handles POST /api/v1/embeds. It embeds a game for the caller
// and returns the URL the game must dial. Events of the embedding are
// mirrored to observers of its embed id.
func (h *Handler) CreateEmbed(w http.ResponseWriter, r *http.Request) {
	var req CreateEmbedRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		NewResponseWriter(w, r).BadRequest("invalid request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeValidationError(w, r, verr)
		return
	}

	cfg := host.Config{
		EmbedID:       req.EmbedID,
		GameID:        req.GameID,
		GameURL:       req.GameURL,
		Width:         req.Width,
		Height:        req.Height,
		Fullscreen:    req.Fullscreen,
		IsMultiplayer: req.IsMultiplayer,
		SessionID:     req.SessionID,
	}
	if cfg.EmbedID == "" {
		// Callbacks need the id before the manager exists.
		cfg.EmbedID = uuid.NewString()
	}

	m, err := h.registry.Create(r.Context(), cfg, h.hub.Callbacks(cfg.EmbedID, cfg))
	h.record(r, audit.ActionEmbedCreate, audit.TargetEmbed, cfg.EmbedID, err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("embed_id", m.ID()).
		Str("game_id", cfg.GameID).
		Bool("multiplayer", cfg.IsMultiplayer).
		Msg("Embed created")
	NewResponseWriter(w, r).Created(h.embedView(m, true))
}

// ListEmbeds handles GET /api/v1/embeds.
func (h *Handler) ListEmbeds(w http.ResponseWriter, r *http.Request) {
	managers := h.registry.List()
	views := make([]EmbedView, 0, len(managers))
	for _, m := range managers {
		views = append(views, h.embedView(m, false))
	}
	WriteSuccess(w, r, views)
}

// embed resolves {embedID}. A non-empty action marks a control request:
// ownership is checked and refusals are audited.
func (h *Handler) embed(w http.ResponseWriter, r *http.Request, action audit.Action) (*host.Manager, bool) {
	embedID := chi.URLParam(r, "embedID")
	m, err := h.registry.Get(embedID)
	if err != nil {
		if action != "" {
			h.record(r, action, audit.TargetEmbed, embedID, err)
		}
		writeServiceError(w, r, err)
		return nil, false
	}
	if action != "" && !owns(r, m) {
		h.record(r, action, audit.TargetEmbed, embedID, errNotOwner)
		NewResponseWriter(w, r).Error(http.StatusForbidden, ErrCodeForbidden, errNotOwner.Error())
		return nil, false
	}
	return m, true
}

// GetEmbed handles GET /api/v1/embeds/{embedID}.
func (h *Handler) GetEmbed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.embed(w, r, "")
	if !ok {
		return
	}
	WriteSuccess(w, r, h.embedView(m, owns(r, m)))
}

// PauseEmbed handles POST /api/v1/embeds/{embedID}/pause.
func (h *Handler) PauseEmbed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.embed(w, r, audit.ActionEmbedPause)
	if !ok {
		return
	}
	err := m.PauseGame()
	h.record(r, audit.ActionEmbedPause, audit.TargetEmbed, m.ID(), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, h.embedView(m, false))
}

// ResumeEmbed handles POST /api/v1/embeds/{embedID}/resume.
func (h *Handler) ResumeEmbed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.embed(w, r, audit.ActionEmbedResume)
	if !ok {
		return
	}
	err := m.ResumeGame()
	h.record(r, audit.ActionEmbedResume, audit.TargetEmbed, m.ID(), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, h.embedView(m, false))
}

// RestartEmbed handles POST /api/v1/embeds/{embedID}/restart.
func (h *Handler) RestartEmbed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.embed(w, r, audit.ActionEmbedRestart)
	if !ok {
		return
	}
	err := m.RestartGame(r.Context())
	h.record(r, audit.ActionEmbedRestart, audit.TargetEmbed, m.ID(), err)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, h.embedView(m, true))
}

// DeleteEmbed handles DELETE /api/v1/embeds/{embedID}.
func (h *Handler) DeleteEmbed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.embed(w, r, audit.ActionEmbedDelete)
	if !ok {
		return
	}
	if err := m.Close(); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("embed_id", m.ID()).Msg("Embed closed with error")
	}
	h.record(r, audit.ActionEmbedDelete, audit.TargetEmbed, m.ID(), nil)
	NewResponseWriter(w, r).NoContent()
}

// ServeGuest handles GET /ws/guest/{token}.
func (h *Handler) ServeGuest(w http.ResponseWriter, r *http.Request) {
	h.gateway.ServeGuest(w, r, chi.URLParam(r, "token"))
}

// ServeObserver handles GET /ws/observe?topic=...
func (h *Handler) ServeObserver(w http.ResponseWriter, r *http.Request) {
	h.gateway.ServeObserver(h.hub, w, r)
}
