// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

// Package validation validates API request structs with
// go-playground/validator v10.
//
// A single validator is shared process-wide; it caches struct metadata and
// is safe for concurrent use. Errors name fields by their json tag so they
// match what the client sent.
//
// # Custom Tags
//
//   - gameid: 1-128 characters of letters, digits, '.', '-' or '_'
//   - playerstatus: waiting, ready, playing or disconnected
//   - sessionstatus: waiting, playing or completed
//
// # Usage
//
//	type createSessionRequest struct {
//	    GameID     string `json:"game_id" validate:"required,gameid"`
//	    MaxPlayers int    `json:"max_players" validate:"min=0,max=64"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // respond 400 with apiErr
//	}
//
// ToAPIError returns a models.APIError with code VALIDATION_ERROR. A single
// failure puts field, tag and value in Details; several failures list each
// under Details["fields"].
package validation
