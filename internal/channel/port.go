// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package channel

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/logging"
	"github.com/tomtom215/gamebridge/internal/metrics"
	"github.com/tomtom215/gamebridge/internal/protocol"
)

// AnyOrigin matches envelopes from every sender. Hosts and guests should
// listen on a concrete origin; AnyOrigin exists for diagnostics.
const AnyOrigin = "*"

// DefaultInboxSize is the number of undelivered envelopes a Port buffers.
const DefaultInboxSize = 256

// ErrClosed is returned when posting on a closed endpoint.
var ErrClosed = errors.New("channel: closed")

// Drop reasons reported to metrics.
const (
	dropNotReady    = "not_ready"
	dropOrigin      = "origin"
	dropInboxFull   = "inbox_full"
	dropClosed      = "closed"
	dropUnconnected = "unconnected"
)

// Handler receives a message from an accepted origin.
type Handler func(protocol.Message)

// Envelope is a message tagged with the origin of the endpoint that sent it.
type Envelope struct {
	Origin  string
	Message protocol.Message
}

// Sink accepts envelopes posted by a Port's peer. Deliver must not block.
type Sink interface {
	Deliver(env Envelope) bool
}

// Channel is one side of a host/guest boundary.
type Channel interface {
	// Post sends msg to the peer. It never waits for the peer and only
	// reports local failures.
	Post(msg protocol.Message) error

	// Listen registers fn for messages sent from origin and returns a
	// function that removes the registration.
	Listen(origin string, fn Handler) (unlisten func())

	// Origin identifies this endpoint to its peer.
	Origin() string

	// Close stops dispatch. It is safe to call more than once.
	Close() error
}

type listener struct {
	origin string
	fn     Handler
}

// Port is an in-process Channel endpoint with its own dispatch loop.
type Port struct {
	origin string
	inbox  chan Envelope
	done   chan struct{}
	logger zerolog.Logger

	mu        sync.RWMutex
	listeners []*listener
	peer      Sink
	onClose   []func()
	closeOnce sync.Once
}

// NewPort creates an endpoint identified by origin and starts its dispatch
// loop.
func NewPort(origin string) *Port {
	p := &Port{
		origin: origin,
		inbox:  make(chan Envelope, DefaultInboxSize),
		done:   make(chan struct{}),
		logger: logging.WithComponent("channel").With().Str("origin", origin).Logger(),
	}
	go p.run()
	return p
}

// Origin implements Channel.
func (p *Port) Origin() string {
	return p.origin
}

// Connect routes this port's posts to peer. A nil peer disconnects; posts
// are then dropped.
func (p *Port) Connect(peer Sink) {
	p.mu.Lock()
	p.peer = peer
	p.mu.Unlock()
}

// OnClose registers fn to run once when the port closes.
func (p *Port) OnClose(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClose = append(p.onClose, fn)
}

// Post implements Channel.
func (p *Port) Post(msg protocol.Message) error {
	if msg.Type == "" {
		return protocol.ErrMissingType
	}
	if p.isClosed() {
		return ErrClosed
	}

	p.mu.RLock()
	peer := p.peer
	p.mu.RUnlock()

	metrics.RecordChannelMessage("out", string(msg.Type))
	if peer == nil {
		metrics.RecordChannelDrop(dropUnconnected)
		p.logger.Debug().Str("type", string(msg.Type)).Msg("peer not connected, message dropped")
		return nil
	}
	peer.Deliver(Envelope{Origin: p.origin, Message: msg})
	return nil
}

// Listen implements Channel.
func (p *Port) Listen(origin string, fn Handler) func() {
	l := &listener{origin: origin, fn: fn}

	p.mu.Lock()
	p.listeners = append(p.listeners, l)
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			for i, existing := range p.listeners {
				if existing == l {
					p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Deliver implements Sink. Envelopes arriving before any listener is
// registered, after Close, or while the inbox is full are dropped.
func (p *Port) Deliver(env Envelope) bool {
	if p.isClosed() {
		metrics.RecordChannelDrop(dropClosed)
		return false
	}

	p.mu.RLock()
	ready := len(p.listeners) > 0
	p.mu.RUnlock()
	if !ready {
		metrics.RecordChannelDrop(dropNotReady)
		p.logger.Debug().Str("type", string(env.Message.Type)).Msg("receiver not initialized, message dropped")
		return false
	}

	select {
	case p.inbox <- env:
		return true
	case <-p.done:
		metrics.RecordChannelDrop(dropClosed)
		return false
	default:
		metrics.RecordChannelDrop(dropInboxFull)
		p.logger.Warn().Str("type", string(env.Message.Type)).Msg("inbox full, message dropped")
		return false
	}
}

// Close implements Channel.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		hooks := p.onClose
		p.onClose = nil
		p.listeners = nil
		p.peer = nil
		p.mu.Unlock()

		for _, fn := range hooks {
			fn()
		}
	})
	return nil
}

// Done is closed when the port closes.
func (p *Port) Done() <-chan struct{} {
	return p.done
}

func (p *Port) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *Port) run() {
	for {
		select {
		case <-p.done:
			return
		case env := <-p.inbox:
			p.dispatch(env)
		}
	}
}

func (p *Port) dispatch(env Envelope) {
	p.mu.RLock()
	matched := make([]Handler, 0, len(p.listeners))
	for _, l := range p.listeners {
		if l.origin == AnyOrigin || l.origin == env.Origin {
			matched = append(matched, l.fn)
		}
	}
	p.mu.RUnlock()

	if len(matched) == 0 {
		metrics.RecordChannelDrop(dropOrigin)
		p.logger.Debug().
			Str("sender", env.Origin).
			Str("type", string(env.Message.Type)).
			Msg("message from unaccepted origin ignored")
		return
	}

	metrics.RecordChannelMessage("in", string(env.Message.Type))
	for _, fn := range matched {
		p.invoke(fn, env)
	}
}

// invoke isolates the loop from a panicking handler.
func (p *Port) invoke(fn Handler, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic", r).
				Str("type", string(env.Message.Type)).
				Msg("message handler panicked")
		}
	}()
	fn(env.Message)
}

// NewPipe returns two connected in-process endpoints. Each listens for the
// other's origin.
func NewPipe(hostOrigin, guestOrigin string) (host, guest *Port) {
	host = NewPort(hostOrigin)
	guest = NewPort(guestOrigin)
	host.Connect(guest)
	guest.Connect(host)
	return host, guest
}
