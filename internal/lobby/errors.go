// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package lobby

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every failure returned by Service wraps one of these (or
// a store error) in an *Error.
var (
	ErrUnauthenticated   = errors.New("sign in required")
	ErrNotHost           = errors.New("only the session host can do this")
	ErrNotFound          = errors.New("not found")
	ErrSessionFull       = errors.New("session is full")
	ErrSessionClosed     = errors.New("session is no longer accepting players")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrNotEnoughPlayers  = errors.New("at least two players are needed to start")
	ErrPlayersNotReady   = errors.New("every player must be ready to start")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoChangeFeed      = errors.New("change feed is not configured")
)

// Kind classifies an Error for callers that map failures onto a transport,
// such as HTTP status codes.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalid
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindStore:
		return "store"
	default:
		return "internal"
	}
}

// Error is returned by every failing lobby operation. Its message is always
// populated and suitable for display.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("lobby: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindInternal
}

func kindFor(err error) Kind {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrNotHost):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSessionFull), errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotEnoughPlayers),
		errors.Is(err, ErrPlayersNotReady):
		return KindConflict
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalid
	case errors.Is(err, ErrNoChangeFeed):
		return KindInternal
	default:
		return KindStore
	}
}

// wrap turns err into an *Error for op. nil stays nil and an existing *Error
// is returned as is.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return &Error{Op: op, Kind: kindFor(err), Err: err}
}
