// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package identity

import (
	"net/http"
	"strings"

	"github.com/tomtom215/gamebridge/internal/logging"
)

// TokenQueryParam carries a token for websocket upgrades, which cannot set
// an Authorization header from a browser.
const TokenQueryParam = "access_token"

// Middleware attaches verified identities to request contexts.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware returns middleware verifying tokens with m.
func NewMiddleware(m *JWTManager) *Middleware {
	return &Middleware{jwt: m}
}

// Optional attaches the identity when a valid token is present and passes
// anonymous requests through. An invalid token is rejected.
func (m *Middleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("rejected bearer token")
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), claims.Identity())))
	})
}

// Required rejects requests without a valid token.
func (m *Middleware) Required(next http.Handler) http.Handler {
	return m.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="gamebridge"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}
