// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

// Package audit records who controlled which embed or session, and whether
// they were allowed to.
//
// The API layer logs one Event per control request: creating, pausing,
// resuming, restarting and deleting embeds; creating, joining, leaving,
// starting and changing the status of lobby sessions; issuing development
// tokens. Each event carries the actor, the target, the request id and an
// Outcome of success, denied or failure.
//
// # Writing
//
// Logger.Log is non-blocking. Events go through a bounded queue to a single
// writer goroutine that saves them to a Store. When the queue is full the
// event is dropped and gamebridge_audit_dropped_total is incremented.
// Close drains the queue.
//
// # Storage
//
// DuckDBStore keeps events in the audit_events table of the score database.
// MemoryStore is a bounded in-process store for tests and ephemeral runs.
//
// # Retention
//
// Logger implements suture.Service. Its Serve loop deletes events older
// than Config.Retention every Config.CleanupInterval.
package audit
