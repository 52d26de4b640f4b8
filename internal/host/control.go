// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package host

import (
	"context"
	"fmt"

	"github.com/tomtom215/gamebridge/internal/protocol"
)

// PauseGame asks the guest to pause.
func (m *Manager) PauseGame() error {
	return m.post(protocol.TypePauseGame, nil)
}

// ResumeGame asks the guest to resume.
func (m *Manager) ResumeGame() error {
	return m.post(protocol.TypeResumeGame, nil)
}

// RestartGame asks the guest to restart. In RestartReload mode the
// embedding is then recreated and the manager returns to loading until the
// new guest announces readiness.
func (m *Manager) RestartGame(ctx context.Context) error {
	if err := m.post(protocol.TypeRestartGame, nil); err != nil {
		return err
	}
	if m.cfg.RestartMode != RestartReload {
		return nil
	}
	return m.reload(ctx)
}

func (m *Manager) reload(ctx context.Context) error {
	next, err := m.deps.Embedder.Embed(ctx, m.spec())
	if err != nil {
		return fmt.Errorf("host: re-embed %s: %w", m.cfg.GameID, err)
	}

	m.mu.Lock()
	if m.State() == StateClosed {
		m.mu.Unlock()
		_ = next.Close()
		return ErrClosed
	}
	prev, prevUnlisten := m.embedding, m.unlisten
	m.embedding, m.unlisten = nil, nil
	m.mu.Unlock()

	if prevUnlisten != nil {
		prevUnlisten()
	}
	if prev != nil {
		if err := prev.Close(); err != nil {
			m.logger.Warn().Err(err).Msg("failed to close previous embedding")
		}
	}

	m.logger.Info().Msg("reloading embedding")
	return m.attach(ctx, next)
}
