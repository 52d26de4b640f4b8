// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

// Conn carries a Port's traffic over a websocket. Messages read from the
// socket are delivered into the port as if posted by remoteOrigin; messages
// the port posts are written to the socket.
type Conn struct {
	ws           *websocket.Conn
	port         *Port
	remoteOrigin string
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	started      atomic.Bool
	logger       zerolog.Logger
}

// Bridge attaches ws to port. The port's outbound traffic is routed to the
// socket immediately; inbound traffic flows once Run is called.
func Bridge(ws *websocket.Conn, port *Port, remoteOrigin string) *Conn {
	c := &Conn{
		ws:           ws,
		port:         port,
		remoteOrigin: remoteOrigin,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		logger: logging.WithComponent("channel").With().
			Str("origin", port.Origin()).
			Str("remote", remoteOrigin).
			Logger(),
	}
	port.Connect(c)
	return c
}

// RemoteOrigin is the origin inbound messages are attributed to.
func (c *Conn) RemoteOrigin() string {
	return c.remoteOrigin
}

// Deliver implements Sink by queueing env for the write pump.
func (c *Conn) Deliver(env Envelope) bool {
	b, err := protocol.Encode(env.Message)
	if err != nil {
		c.logger.Warn().Err(err).Str("type", string(env.Message.Type)).Msg("message not encodable, dropped")
		return false
	}
	select {
	case <-c.done:
		metrics.RecordChannelDrop(dropClosed)
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		metrics.RecordChannelDrop(dropInboxFull)
		c.logger.Warn().Str("type", string(env.Message.Type)).Msg("send buffer full, message dropped")
		return false
	}
}

// Run pumps the connection until ctx is cancelled, the socket fails or Close
// is called. The port is disconnected from the socket on return but is not
// closed.
func (c *Conn) Run(ctx context.Context) {
	c.started.Store(true)
	go c.writePump()
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	c.readPump()
}

// Close shuts the socket. The write pump sends a close frame before the
// socket is released. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.port.mu.Lock()
		if c.port.peer == Sink(c) {
			c.port.peer = nil
		}
		c.port.mu.Unlock()
		if !c.started.Load() {
			err = c.ws.Close()
		}
	})
	return err
}

// Done is closed once the connection has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) readPump() {
	defer func() { _ = c.Close() }()

	c.ws.SetReadLimit(protocol.MaxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("unexpected websocket close")
			}
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Debug().Err(err).Msg("malformed message ignored")
			continue
		}
		c.port.Deliver(Envelope{Origin: c.remoteOrigin, Message: msg})
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case b := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
