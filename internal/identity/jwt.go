// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims are the JWT claims issued for a platform user. Subject is the user id.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts verified claims to an Identity.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Name: c.Name, Avatar: c.Avatar}
}

// JWTManager issues and verifies HS256 tokens.
type JWTManager struct {
	secret  []byte
	issuer  string
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager returns a manager. secret must be at least MinSecretLength
// bytes; timeout is the token lifetime.
func NewJWTManager(secret, issuer string, timeout time.Duration) (*JWTManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("identity: JWT secret must be at least %d characters", MinSecretLength)
	}
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{
		secret:  []byte(secret),
		issuer:  issuer,
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// GenerateToken signs a token for id.
func (m *JWTManager) GenerateToken(id Identity) (string, error) {
	if id.UserID == "" {
		return "", errors.New("identity: user id is required")
	}
	now := m.now()
	claims := &Claims{
		Name:   id.Name,
		Avatar: id.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, lifetime and issuer.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
