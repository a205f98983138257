// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mibmo/matrix-free-stuff/lib/ref"
	"github.com/mibmo/matrix-free-stuff/messaging"
	"github.com/mibmo/matrix-free-stuff/webhook"
)

// messageSender is the slice of the messaging session the announcer
// needs.
type messageSender interface {
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)
	SendMessage(ctx context.Context, roomID ref.RoomID, content messaging.MessageContent) (string, error)
}

// Announcer fans a free-games event out to every room the bridge has
// joined. Per-room send failures are logged and skipped; a room that
// kicked the bridge must not block announcements elsewhere.
type Announcer struct {
	session messageSender
	logger  *slog.Logger
}

// NewAnnouncer creates an Announcer. Panics if session or logger is
// nil.
func NewAnnouncer(session messageSender, logger *slog.Logger) *Announcer {
	if session == nil {
		panic("NewAnnouncer: session is required")
	}
	if logger == nil {
		panic("NewAnnouncer: logger is required")
	}
	return &Announcer{session: session, logger: logger}
}

// AnnounceFreeGames sends a notice listing the given games to every
// joined room. Returns an error only when the room list itself cannot
// be fetched; individual send failures are logged.
func (a *Announcer) AnnounceFreeGames(ctx context.Context, games []webhook.GameID) error {
	if len(games) == 0 {
		a.logger.Debug("free games event with no games, nothing to announce")
		return nil
	}

	rooms, err := a.session.JoinedRooms(ctx)
	if err != nil {
		return fmt.Errorf("listing joined rooms: %w", err)
	}

	notice := messaging.NewNotice(formatFreeGames(games))
	for _, room := range rooms {
		if _, err := a.session.SendMessage(ctx, room, notice); err != nil {
			a.logger.Error("failed to announce free games",
				"room_id", room,
				"error", err,
			)
			continue
		}
		a.logger.Info("announced free games",
			"room_id", room,
			"games", len(games),
		)
	}
	return nil
}

// formatFreeGames renders the announcement body. Game IDs link to the
// FreeStuff redirect endpoint, which resolves to the store page.
func formatFreeGames(games []webhook.GameID) string {
	word := "game is"
	if len(games) != 1 {
		word = "games are"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d free %s up for grabs:", len(games), word)
	for _, game := range games {
		fmt.Fprintf(&builder, "\nhttps://api.freestuffbot.xyz/v1/game/%d/redirect", game)
	}
	return builder.String()
}
