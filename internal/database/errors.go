// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package database

import (
	"errors"
	"io"

	"github.com/tomtom215/gamebridge/internal/logging"
)

var (
	// ErrNotFound is returned when a query has no matching rows.
	ErrNotFound = errors.New("database: not found")

	// ErrUnavailable is returned while the score circuit breaker is open.
	ErrUnavailable = errors.New("database: score store unavailable")

	// ErrInvalidScore is returned for scores that cannot be stored.
	ErrInvalidScore = errors.New("database: invalid score")
)

// closeWithLog closes a resource and logs a failure.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}
