// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/mibmo/matrix-free-stuff/lib/ref"
	"github.com/mibmo/matrix-free-stuff/messaging"
	"github.com/mibmo/matrix-free-stuff/webhook"
)

type fakeSender struct {
	rooms    []ref.RoomID
	roomsErr error
	sendErrs map[string]error
	messages map[string][]messaging.MessageContent
}

func newFakeSender(rooms ...string) *fakeSender {
	sender := &fakeSender{
		sendErrs: map[string]error{},
		messages: map[string][]messaging.MessageContent{},
	}
	for _, raw := range rooms {
		roomID, err := ref.ParseRoomID(raw)
		if err != nil {
			panic(err)
		}
		sender.rooms = append(sender.rooms, roomID)
	}
	return sender
}

func (s *fakeSender) JoinedRooms(context.Context) ([]ref.RoomID, error) {
	if s.roomsErr != nil {
		return nil, s.roomsErr
	}
	return s.rooms, nil
}

func (s *fakeSender) SendMessage(_ context.Context, roomID ref.RoomID, content messaging.MessageContent) (string, error) {
	if err := s.sendErrs[roomID.String()]; err != nil {
		return "", err
	}
	s.messages[roomID.String()] = append(s.messages[roomID.String()], content)
	return "$event", nil
}

func TestAnnounceFreeGames(t *testing.T) {
	sender := newFakeSender("!one:example.org", "!two:example.org")
	announcer := NewAnnouncer(sender, slog.Default())

	err := announcer.AnnounceFreeGames(context.Background(), []webhook.GameID{973, 1024})
	if err != nil {
		t.Fatal(err)
	}

	for _, room := range []string{"!one:example.org", "!two:example.org"} {
		notices := sender.messages[room]
		if len(notices) != 1 {
			t.Fatalf("room %s: got %d messages, want 1", room, len(notices))
		}
		if notices[0].MsgType != "m.notice" {
			t.Errorf("room %s: msgtype %q, want m.notice", room, notices[0].MsgType)
		}
		if !strings.Contains(notices[0].Body, "game/973/redirect") {
			t.Errorf("room %s: body missing game link: %s", room, notices[0].Body)
		}
	}
}

func TestAnnounceSkipsFailingRooms(t *testing.T) {
	sender := newFakeSender("!one:example.org", "!two:example.org")
	sender.sendErrs["!one:example.org"] = fmt.Errorf("M_FORBIDDEN")
	announcer := NewAnnouncer(sender, slog.Default())

	err := announcer.AnnounceFreeGames(context.Background(), []webhook.GameID{7})
	if err != nil {
		t.Fatal(err)
	}
	if len(sender.messages["!two:example.org"]) != 1 {
		t.Error("healthy room should still receive the announcement")
	}
}

func TestAnnounceRoomListFailure(t *testing.T) {
	sender := newFakeSender()
	sender.roomsErr = fmt.Errorf("homeserver unreachable")
	announcer := NewAnnouncer(sender, slog.Default())

	err := announcer.AnnounceFreeGames(context.Background(), []webhook.GameID{7})
	if err == nil {
		t.Fatal("expected error when the room list cannot be fetched")
	}
}

func TestAnnounceNothingToAnnounce(t *testing.T) {
	sender := newFakeSender("!one:example.org")
	announcer := NewAnnouncer(sender, slog.Default())

	if err := announcer.AnnounceFreeGames(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(sender.messages) != 0 {
		t.Errorf("no games should mean no messages, got %v", sender.messages)
	}
}

func TestFormatFreeGames(t *testing.T) {
	single := formatFreeGames([]webhook.GameID{42})
	if !strings.HasPrefix(single, "1 free game is") {
		t.Errorf("singular form: %s", single)
	}

	plural := formatFreeGames([]webhook.GameID{1, 2, 3})
	if !strings.HasPrefix(plural, "3 free games are") {
		t.Errorf("plural form: %s", plural)
	}
	if strings.Count(plural, "redirect") != 3 {
		t.Errorf("expected one link per game: %s", plural)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("HOMESERVER_URL", "http://localhost:8008")
	t.Setenv("APPSERVICE_REGISTRATION", "/tmp/registration.yaml")
	t.Setenv("WEBHOOK_ADDR", "")
	t.Setenv("WEBHOOK_PATH", "")
	t.Setenv("WEBHOOK_SECRET", "")
	t.Setenv("FREESTUFF_METRICS_LISTEN", "")

	t.Run("defaults from environment", func(t *testing.T) {
		config, err := loadConfig(nil)
		if err != nil {
			t.Fatal(err)
		}
		if config.homeserverURL != "http://localhost:8008" {
			t.Errorf("homeserver: %s", config.homeserverURL)
		}
		if config.listenAddress != "0.0.0.0:3000" {
			t.Errorf("listen address default: %s", config.listenAddress)
		}
		if config.webhookPath != "/" {
			t.Errorf("webhook path default: %s", config.webhookPath)
		}
	})

	t.Run("flags override environment", func(t *testing.T) {
		config, err := loadConfig([]string{
			"--homeserver-url", "http://matrix.example.org",
			"--listen", "127.0.0.1:8080",
		})
		if err != nil {
			t.Fatal(err)
		}
		if config.homeserverURL != "http://matrix.example.org" {
			t.Errorf("homeserver: %s", config.homeserverURL)
		}
		if config.listenAddress != "127.0.0.1:8080" {
			t.Errorf("listen address: %s", config.listenAddress)
		}
	})

	t.Run("missing homeserver rejected", func(t *testing.T) {
		t.Setenv("HOMESERVER_URL", "")
		if _, err := loadConfig(nil); err == nil {
			t.Fatal("expected error for missing homeserver URL")
		}
	})
}
