// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/identity"
	"github.com/tomtom215/gamebridge/internal/logging"
)

// errNotOwner is recorded when an embed control request is refused.
var errNotOwner = errors.New("embed belongs to another user")

// outcomeFor classifies the result of a control request.
func outcomeFor(err error) audit.Outcome {
	if err == nil {
		return audit.OutcomeSuccess
	}
	if errors.Is(err, errNotOwner) {
		return audit.OutcomeDenied
	}
	if status, _ := statusFor(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
		return audit.OutcomeDenied
	}
	return audit.OutcomeFailure
}

// record logs a control request to the audit trail. It is a no-op when
// auditing is off.
func (h *Handler) record(r *http.Request, action audit.Action, targetType, targetID string, err error) {
	if h.audit == nil {
		return
	}
	e := &audit.Event{
		Action:     action,
		Outcome:    outcomeFor(err),
		ActorID:    identity.UserID(r.Context()),
		SourceIP:   remoteIP(r),
		TargetType: targetType,
		TargetID:   targetID,
		RequestID:  logging.RequestIDFromContext(r.Context()),
	}
	if err != nil {
		e.Reason = err.Error()
	}
	h.audit.Log(e)
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// MyAudit handles GET /api/v1/me/audit. It lists the caller's own control
// requests, newest first.
//
// Query parameters: action, since (RFC 3339), limit.
func (h *Handler) MyAudit(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserID(r.Context())
	if userID == "" {
		NewResponseWriter(w, r).Unauthorized("sign in required")
		return
	}

	filter := audit.QueryFilter{
		ActorID: userID,
		Action:  audit.Action(r.URL.Query().Get("action")),
	}
	var err error
	if filter.Limit, err = queryInt(r, "limit", audit.DefaultQueryLimit); err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		if filter.Since, err = time.Parse(time.RFC3339, raw); err != nil {
			NewResponseWriter(w, r).BadRequest("since must be an RFC 3339 timestamp")
			return
		}
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, events)
}
