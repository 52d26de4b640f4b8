// Gamebridge - Embedded Game Host Protocol and Multiplayer Lobbies
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gamebridge

package guest

import (
	"context"
	"fmt"

	"github.com/tomtom215/gamebridge/internal/channel"
)

// EntryFunc is a game's entry point. It receives a ready SDK and returns when
// the game ends.
type EntryFunc func(ctx context.Context, sdk *SDK) error

// Bootstrap constructs the SDK for ch and runs entry with it. The SDK is
// closed when entry returns.
func Bootstrap(ctx context.Context, ch channel.Channel, cfg Config, entry EntryFunc) error {
	if entry == nil {
		return fmt.Errorf("guest: nil entry point")
	}
	sdk, err := New(ctx, ch, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = sdk.Close() }()

	if err := entry(ctx, sdk); err != nil {
		return fmt.Errorf("guest: game %s: %w", cfg.GameID, err)
	}
	return nil
}
