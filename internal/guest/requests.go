// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package guest

import (
	"context"
	"time"

	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// call is a request awaiting its reply.
type call struct {
	sdk     *SDK
	id      string
	msgType protocol.Type
	reply   chan protocol.Message
	timeout time.Duration
}

// send posts a request and registers it for its reply before the post, so a
// fast reply cannot be missed.
func (s *SDK) send(t protocol.Type, payload interface{}) (*call, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	msg, err := protocol.NewRequest(t, payload)
	if err != nil {
		return nil, err
	}

	c := &call{
		sdk:     s,
		id:      msg.ID,
		msgType: t,
		reply:   make(chan protocol.Message, 1),
		timeout: s.cfg.RequestTimeout,
	}

	s.pendingMu.Lock()
	s.pending[c.id] = c.reply
	s.pendingMu.Unlock()

	if err := s.ch.Post(msg); err != nil {
		s.forget(c.id)
		return nil, err
	}
	return c, nil
}

// wait blocks for the reply, the request timeout, ctx or Close.
func (c *call) wait(ctx context.Context) (protocol.Message, error) {
	defer c.sdk.forget(c.id)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-c.reply:
		return reply, nil
	case <-timer.C:
		metrics.RecordGuestTimeout(string(c.msgType))
		return protocol.Message{}, ErrTimeout
	case <-ctx.Done():
		return protocol.Message{}, ctx.Err()
	case <-c.sdk.closed:
		return protocol.Message{}, ErrClosed
	}
}

func (s *SDK) request(ctx context.Context, t protocol.Type, payload interface{}) (protocol.Message, error) {
	c, err := s.send(t, payload)
	if err != nil {
		return protocol.Message{}, err
	}
	return c.wait(ctx)
}

func (s *SDK) forget(id string) {
	s.pendingMu.Lock()
	delete(s.pending, id)
	s.pendingMu.Unlock()
}

// resolve hands a reply to its waiting call. Replies to unknown or expired
// requests are ignored.
func (s *SDK) resolve(msg protocol.Message) {
	s.pendingMu.Lock()
	ch, ok := s.pending[msg.ReplyTo]
	if ok {
		delete(s.pending, msg.ReplyTo)
	}
	s.pendingMu.Unlock()

	if !ok {
		s.logger.Debug().Str("reply_to", msg.ReplyTo).Str("type", string(msg.Type)).Msg("late or unknown reply ignored")
		return
	}
	ch <- msg
}
