// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
)

const auditTable = "audit_events"

// DuckDBStore implements Store on the score database connection.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore returns a store over db. Call CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit table and its indexes if missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			action TEXT NOT NULL,
			outcome TEXT NOT NULL,
			actor_id TEXT,
			source_ip TEXT,
			target_type TEXT NOT NULL,
			target_id TEXT,
			request_id TEXT,
			reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_id);
		CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_events(target_id)`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create audit schema: %w", err)
		}
	}
	return nil
}

// Save implements Store.
func (s *DuckDBStore) Save(ctx context.Context, e *Event) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, timestamp, action, outcome, actor_id, source_ip, target_type, target_id, request_id, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp, string(e.Action), string(e.Outcome),
		e.ActorID, e.SourceIP, e.TargetType, e.TargetID, e.RequestID, e.Reason)
	metrics.RecordDBQuery("insert", auditTable, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Query implements Store.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) (events []Event, err error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.TargetID != "" {
		conds = append(conds, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if filter.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, string(filter.Action))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	query := `SELECT id, timestamp, action, outcome, actor_id, source_ip, target_type, target_id, request_id, reason FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY timestamp DESC, id LIMIT ?"
	args = append(args, filter.limit())

	start := time.Now()
	defer func() { metrics.RecordDBQuery("query", auditTable, time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close audit rows")
		}
	}()

	events = []Event{}
	for rows.Next() {
		var e Event
		var action, outcome string
		var actorID, sourceIP, targetID, requestID, reason sql.NullString
		if err = rows.Scan(&e.ID, &e.Timestamp, &action, &outcome, &actorID, &sourceIP,
			&e.TargetType, &targetID, &requestID, &reason); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		e.Outcome = Outcome(outcome)
		e.ActorID = actorID.String
		e.SourceIP = sourceIP.String
		e.TargetID = targetID.String
		e.RequestID = requestID.String
		e.Reason = reason.String
		events = append(events, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan implements Store.
func (s *DuckDBStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, cutoff)
	metrics.RecordDBQuery("delete", auditTable, time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return n, nil
}
