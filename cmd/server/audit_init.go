// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/gamebridge/internal/audit"
	"github.com/tomtom215/gamebridge/internal/config"
	"github.com/tomtom215/gamebridge/internal/logging"
)

// InitAudit creates the audit table on conn and starts the audit logger.
// It returns nil when auditing is disabled.
func InitAudit(ctx context.Context, cfg config.AuditConfig, conn *sql.DB) (*audit.Logger, error) {
	if !cfg.Enabled {
		logging.Info().Msg("Audit trail disabled")
		return nil, nil
	}

	store := audit.NewDuckDBStore(conn)
	if err := store.CreateTable(ctx); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	l := audit.NewLogger(store, audit.Config{
		BufferSize:      cfg.BufferSize,
		Retention:       cfg.Retention,
		CleanupInterval: cfg.CleanupInterval,
		LogToStdout:     cfg.LogToStdout,
	})
	logging.Info().Dur("retention", cfg.Retention).Msg("Audit trail ready")
	return l, nil
}
