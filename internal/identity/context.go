// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package identity

import "context"

type contextKey string

const identityKey contextKey = "identity"

// Identity is an authenticated user.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity carried by ctx. ok is false for anonymous
// requests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// UserID returns the user id carried by ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// Provider answers "who is the current user" for a context.
type Provider interface {
	CurrentIdentity(ctx context.Context) (Identity, bool)
}

// ContextProvider reads the identity placed in the context by Middleware.
type ContextProvider struct{}

// CurrentIdentity implements Provider.
func (ContextProvider) CurrentIdentity(ctx context.Context) (Identity, bool) {
	return FromContext(ctx)
}

// Static always answers with the same identity. The zero value is anonymous.
type Static Identity

// CurrentIdentity implements Provider.
func (s Static) CurrentIdentity(context.Context) (Identity, bool) {
	if s.UserID == "" {
		return Identity{}, false
	}
	return Identity(s), true
}
