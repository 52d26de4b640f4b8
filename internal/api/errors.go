// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/gamebridge/internal/database"
	"github.com/tomtom215/gamebridge/internal/host"
	"github.com/tomtom215/gamebridge/internal/lobby"
	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/validation"
)

// statusFor maps a domain error onto an HTTP status and error code.
// Sentinels with a dedicated code are checked before the lobby kinds.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, lobby.ErrSessionFull):
		return http.StatusConflict, ErrCodeSessionFull
	case errors.Is(err, lobby.ErrSessionClosed):
		return http.StatusConflict, ErrCodeSessionClosed
	case errors.Is(err, lobby.ErrInvalidTransition):
		return http.StatusConflict, ErrCodeInvalidTransition
	case errors.Is(err, lobby.ErrNotEnoughPlayers):
		return http.StatusConflict, ErrCodeNotEnoughPlayers
	case errors.Is(err, lobby.ErrPlayersNotReady):
		return http.StatusConflict, ErrCodePlayersNotReady

	case errors.Is(err, host.ErrUnknownEmbed), errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, host.ErrDuplicateEmbed):
		return http.StatusConflict, ErrCodeDuplicateEmbed
	case errors.Is(err, host.ErrClosed):
		return http.StatusConflict, ErrCodeEmbedClosed
	case errors.Is(err, host.ErrNoSessionStore):
		return http.StatusServiceUnavailable, ErrCodeMultiplayerMissing
	case errors.Is(err, database.ErrUnavailable):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	}

	var le *lobby.Error
	if !errors.As(err, &le) {
		return http.StatusInternalServerError, ErrCodeInternalError
	}
	switch le.Kind {
	case lobby.KindUnauthenticated:
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case lobby.KindForbidden:
		return http.StatusForbidden, ErrCodeForbidden
	case lobby.KindNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case lobby.KindConflict:
		return http.StatusConflict, ErrCodeConflict
	case lobby.KindInvalid:
		return http.StatusBadRequest, ErrCodeBadRequest
	case lobby.KindStore:
		return http.StatusInternalServerError, ErrCodeStoreError
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// writeServiceError reports err to the client. Server-side failures are
// logged and their text is not exposed.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	var le *lobby.Error
	if errors.As(err, &le) {
		message = le.Err.Error()
	}

	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("Request failed")
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}

	rw := NewResponseWriter(w, r)
	if status == http.StatusUnauthorized {
		rw.Unauthorized(message)
		return
	}
	rw.Error(status, code, message)
}

// writeValidationError writes a 400 carrying per-field details.
func writeValidationError(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	NewResponseWriter(w, r).APIError(http.StatusBadRequest, verr.ToAPIError())
}
