// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

/*
Package store persists multiplayer sessions and their players in BadgerDB.

All lobby rules run inside Update, which wraps a single Badger read-write
transaction. A join's capacity check and its increment therefore commit
together or not at all; write conflicts between concurrent transactions are
retried a bounded number of times.

Key layout:

	session:<sessionID>                 JSON models.GameSession
	player:<sessionID>:<userID>         JSON models.GamePlayer

After a successful commit the rows touched by the transaction are reported
to the configured Notifier as Change values. Notification happens outside
the transaction and never fails the write.
*/
package store
