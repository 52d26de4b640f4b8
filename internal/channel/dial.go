// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// DialOptions configures the guest side of a websocket embedding.
type DialOptions struct {
	// Origin identifies the guest. Defaults to "guest".
	Origin string

	// HostOrigin is the origin guest listeners should accept. Defaults to
	// the dialled URL's scheme and host.
	HostOrigin string

	// HandshakeTimeout bounds the websocket upgrade. Defaults to 10s.
	HandshakeTimeout time.Duration

	Header http.Header
}

// Dial connects to a host gateway and returns the guest endpoint together
// with the origin its host posts from. Closing the returned Port closes the
// socket.
func Dial(ctx context.Context, rawURL string, opts DialOptions) (port *Port, hostOrigin string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("channel: parse url: %w", err)
	}
	if opts.Origin == "" {
		opts.Origin = "guest"
	}
	if opts.HostOrigin == "" {
		opts.HostOrigin = u.Scheme + "://" + u.Host
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: opts.HandshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, rawURL, opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, "", fmt.Errorf("channel: dial %s: %w", u.Redacted(), err)
	}

	port = NewPort(opts.Origin)
	conn := Bridge(ws, port, opts.HostOrigin)
	port.OnClose(func() { _ = conn.Close() })

	runCtx, cancel := context.WithCancel(context.Background())
	port.OnClose(cancel)
	go func() {
		conn.Run(runCtx)
		_ = port.Close()
	}()

	return port, opts.HostOrigin, nil
}
