// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package audit

import (
	"context"
	"time"
)

// Action is what the actor attempted.
type Action string

const (
	ActionEmbedCreate  Action = "embed.create"
	ActionEmbedPause   Action = "embed.pause"
	ActionEmbedResume  Action = "embed.resume"
	ActionEmbedRestart Action = "embed.restart"
	ActionEmbedDelete  Action = "embed.delete"

	ActionSessionCreate Action = "session.create"
	ActionSessionJoin   Action = "session.join"
	ActionSessionLeave  Action = "session.leave"
	ActionSessionStatus Action = "session.status"
	ActionSessionStart  Action = "session.start"

	ActionTokenIssue Action = "token.issue"
)

// Outcome is how the attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomeDenied is an ownership or host check refusing the caller.
	OutcomeDenied  Outcome = "denied"
	OutcomeFailure Outcome = "failure"
)

// Target types.
const (
	TargetEmbed   = "embed"
	TargetSession = "session"
	TargetUser    = "user"
)

// Event is one audited control action.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	Outcome    Outcome   `json:"outcome"`
	ActorID    string    `json:"actor_id,omitempty"`
	SourceIP   string    `json:"source_ip,omitempty"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// QueryFilter selects events. Zero fields match everything. Results are
// newest first.
type QueryFilter struct {
	ActorID  string
	TargetID string
	Action   Action
	Since    time.Time
	Limit    int
}

// Limits for QueryFilter.Limit.
const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

func (f QueryFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultQueryLimit
	case f.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return f.Limit
	}
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	// DeleteOlderThan removes events before cutoff and reports how many.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
