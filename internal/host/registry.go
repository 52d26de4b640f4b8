// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrUnknownEmbed is returned for an embed id the registry does not hold.
	ErrUnknownEmbed = errors.New("host: unknown embed")

	// ErrDuplicateEmbed is returned when Create is asked for a live embed id.
	ErrDuplicateEmbed = errors.New("host: embed id already in use")
)

// Registry tracks live managers by embed id. A manager leaves the registry
// when it closes.
type Registry struct {
	deps Deps
	cfg  Config

	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewRegistry returns a registry that builds managers from deps. base
// supplies limits for every Create call; per-call fields override it.
func NewRegistry(deps Deps, base Config) *Registry {
	return &Registry{deps: deps, cfg: base, managers: make(map[string]*Manager)}
}

// Create embeds a game and registers its manager.
func (r *Registry) Create(ctx context.Context, cfg Config, cb Callbacks) (*Manager, error) {
	if cfg.EmbedID != "" {
		if _, err := r.Get(cfg.EmbedID); err == nil {
			return nil, ErrDuplicateEmbed
		}
	}
	m, err := NewManager(ctx, r.merge(cfg), r.deps, cb)
	if err != nil {
		return nil, err
	}
	r.Add(m)
	return m, nil
}

func (r *Registry) merge(cfg Config) Config {
	if cfg.GameURL == "" {
		cfg.GameURL = r.cfg.GameURL
	}
	if cfg.Width == 0 {
		cfg.Width = r.cfg.Width
	}
	if cfg.Height == 0 {
		cfg.Height = r.cfg.Height
	}
	if cfg.HostOrigin == "" {
		cfg.HostOrigin = r.cfg.HostOrigin
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = r.cfg.RateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = r.cfg.RateBurst
	}
	if cfg.ScoreTimeout == 0 {
		cfg.ScoreTimeout = r.cfg.ScoreTimeout
	}
	return cfg
}

// Add registers m.
func (r *Registry) Add(m *Manager) {
	r.mu.Lock()
	r.managers[m.ID()] = m
	r.mu.Unlock()
	m.OnClose(func() { r.remove(m.ID()) })
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.managers, id)
	r.mu.Unlock()
}

// Get returns the manager for id.
func (r *Registry) Get(id string) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[id]
	if !ok {
		return nil, ErrUnknownEmbed
	}
	return m, nil
}

// List returns the live managers ordered by id.
func (r *Registry) List() []*Manager {
	r.mu.RLock()
	out := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		out = append(out, m)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.managers)
}

// CloseAll closes every manager.
func (r *Registry) CloseAll() {
	for _, m := range r.List() {
		_ = m.Close()
	}
}
