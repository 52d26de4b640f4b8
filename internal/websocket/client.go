// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // observers only send control frames

	kindObserver = "observer"
	kindGuest    = "guest"
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between an observer websocket and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan Message

	mu    sync.RWMutex
	topic string
}

// NewClient creates a client observing topic; an empty topic observes
// untargeted frames only.
func NewClient(hub *Hub, conn *websocket.Conn, topic string) *Client {
	return &Client{
		id:    clientIDCounter.Add(1),
		hub:   hub,
		conn:  conn,
		send:  make(chan Message, 256),
		topic: topic,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Topic returns the embed or session id the client observes.
func (c *Client) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

func (c *Client) setTopic(topic string) {
	c.mu.Lock()
	c.topic = topic
	c.mu.Unlock()
}

func (c *Client) wants(topic string) bool {
	return c.Topic() == topic
}

// subscribeData is the payload of an inbound subscribe frame.
type subscribeData struct {
	Topic string `json:"topic"`
}

// inbound is the frame shape observers send. Data is decoded per type.
type inbound struct {
	Type string        `json:"type"`
	Data subscribeData `json:"data"`
}

// readPump handles pings and topic changes until the socket fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Msg("unexpected observer close")
			}
			return
		}

		switch msg.Type {
		case MessageTypePing:
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		case MessageTypeSubscribe:
			c.setTopic(msg.Data.Topic)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Msg("failed to write observer frame")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	metrics.WebSocketConnections.WithLabelValues(kindObserver).Inc()
	go c.writePump()
	go func() {
		defer metrics.WebSocketConnections.WithLabelValues(kindObserver).Dec()
		c.readPump()
	}()
}
