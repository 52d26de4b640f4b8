// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

// Package eventbus is a small synchronous observer keyed by event name.
//
// Listeners run in registration order on the goroutine that calls Emit, and
// every registration returns a Subscription that removes it.
package eventbus

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/gamebridge/internal/logging"
)

// Handler receives the payload of an emitted event.
type Handler func(data interface{})

// Subscription removes a listener. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

type entry struct {
	id uint64
	fn Handler
}

// Bus dispatches named events to listeners.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]entry
	nextID    uint64
	logger    zerolog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		listeners: make(map[string][]entry),
		logger:    logging.WithComponent("eventbus"),
	}
}

// On registers fn for event.
func (b *Bus) On(event string, fn Handler) Subscription {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners[event] = append(b.listeners[event], entry{id: id, fn: fn})
	b.mu.Unlock()

	return &subscription{bus: b, event: event, id: id}
}

// Emit invokes every listener for event, in registration order. A panicking
// listener is logged and does not prevent later listeners from running.
func (b *Bus) Emit(event string, data interface{}) {
	b.mu.RLock()
	entries := append([]entry(nil), b.listeners[event]...)
	b.mu.RUnlock()

	for _, e := range entries {
		b.call(event, e.fn, data)
	}
}

// Count returns the number of listeners for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

// Clear removes every listener.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.listeners = make(map[string][]entry)
	b.mu.Unlock()
}

func (b *Bus) call(event string, fn Handler, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Str("event", event).Msg("event listener panicked")
		}
	}()
	fn(data)
}

func (b *Bus) remove(event string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.listeners[event]
	for i, e := range entries {
		if e.id == id {
			b.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			break
		}
	}
	if len(b.listeners[event]) == 0 {
		delete(b.listeners, event)
	}
}

type subscription struct {
	bus   *Bus
	event string
	id    uint64
	once  sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.event, s.id) })
}

// On registers a listener that only receives payloads of type T. Payloads of
// any other type are skipped.
//
//	eventbus.On(bus, "playerJoined", func(p protocol.Player) { ... })
func On[T any](b *Bus, event string, fn func(T)) Subscription {
	return b.On(event, func(data interface{}) {
		if v, ok := data.(T); ok {
			fn(v)
		}
	})
}
