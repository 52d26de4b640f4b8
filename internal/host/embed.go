// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/tomtom215/gamebridge/internal/channel"
	"github.com/tomtom215/gamebridge/internal/guest"
	"github.com/tomtom215/gamebridge/internal/logging"
)

// EmbedSpec describes the isolated context a game runs in.
type EmbedSpec struct {
	EmbedID    string
	GameID     string
	URL        string
	Width      int
	Height     int
	Fullscreen bool

	// HostOrigin is the origin the guest must accept messages from.
	HostOrigin string

	IsMultiplayer bool
	SessionID     string
}

// Embedding is one isolated guest context. Embedding is split from Load so
// the host can listen before the guest is able to announce readiness.
type Embedding interface {
	// Channel is the host side of the isolation boundary.
	Channel() channel.Channel

	// GuestOrigin is the only origin the host accepts messages from.
	GuestOrigin() string

	// Load starts the guest.
	Load(ctx context.Context) error

	// Close detaches the guest. Safe to call more than once.
	Close() error
}

// Embedder creates embeddings.
type Embedder interface {
	Embed(ctx context.Context, spec EmbedSpec) (Embedding, error)
}

// OriginOf returns the scheme://host of rawURL, or fallback when rawURL has
// no host.
func OriginOf(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fallback
	}
	return u.Scheme + "://" + u.Host
}

// LocalEmbedder runs guests in-process over a channel pipe. The guest code
// only sees its own end of the pipe.
type LocalEmbedder struct {
	Entry guest.EntryFunc

	// GuestConfig is applied to every guest; GameID, HostOrigin,
	// IsMultiplayer and SessionID come from the EmbedSpec.
	GuestConfig guest.Config
}

// Embed implements Embedder.
func (e *LocalEmbedder) Embed(_ context.Context, spec EmbedSpec) (Embedding, error) {
	if e.Entry == nil {
		return nil, errors.New("host: local embedder has no entry point")
	}
	guestOrigin := OriginOf(spec.URL, "guest:"+spec.EmbedID)
	hostPort, guestPort := channel.NewPipe(spec.HostOrigin, guestOrigin)

	cfg := e.GuestConfig
	cfg.GameID = spec.GameID
	cfg.HostOrigin = spec.HostOrigin
	cfg.IsMultiplayer = spec.IsMultiplayer
	cfg.SessionID = spec.SessionID

	return &localEmbedding{
		spec:        spec,
		entry:       e.Entry,
		cfg:         cfg,
		hostPort:    hostPort,
		guestPort:   guestPort,
		guestOrigin: guestOrigin,
		done:        make(chan struct{}),
	}, nil
}

type localEmbedding struct {
	spec        EmbedSpec
	entry       guest.EntryFunc
	cfg         guest.Config
	hostPort    *channel.Port
	guestPort   *channel.Port
	guestOrigin string

	mu        sync.Mutex
	cancel    context.CancelFunc
	loaded    bool
	done      chan struct{}
	closeOnce sync.Once
}

func (l *localEmbedding) Channel() channel.Channel { return l.hostPort }

func (l *localEmbedding) GuestOrigin() string { return l.guestOrigin }

func (l *localEmbedding) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return errors.New("host: embedding already loaded")
	}
	select {
	case <-l.hostPort.Done():
		return channel.ErrClosed
	default:
	}
	l.loaded = true

	guestCtx, cancel := context.WithCancel(logging.ContextWithEmbedID(context.WithoutCancel(ctx), l.spec.EmbedID))
	l.cancel = cancel
	go func() {
		defer close(l.done)
		if err := guest.Bootstrap(guestCtx, l.guestPort, l.cfg, l.entry); err != nil {
			logging.Ctx(guestCtx).Warn().Err(err).Msg("guest exited with error")
		}
	}()
	return nil
}

func (l *localEmbedding) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		cancel := l.cancel
		if !l.loaded {
			close(l.done)
		}
		l.loaded = true
		l.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		_ = l.guestPort.Close()
		_ = l.hostPort.Close()
	})
	return nil
}

// Done is closed once the guest's entry point has returned.
func (l *localEmbedding) Done() <-chan struct{} {
	return l.done
}
