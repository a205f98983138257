// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import "github.com/mibmo/matrix-free-stuff/lib/ref"

// MessageContent is the content body of an m.room.message event.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewNotice creates an m.notice message. Notices are the conventional
// message type for bot and bridge output — clients render them without
// triggering notifications.
func NewNotice(body string) MessageContent {
	return MessageContent{
		MsgType: "m.notice",
		Body:    body,
	}
}

// WhoAmIResponse is returned by Session.WhoAmI.
type WhoAmIResponse struct {
	UserID ref.UserID `json:"user_id"`
}

// JoinRoomResponse is returned by Session.JoinRoom.
type JoinRoomResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// JoinedRoomsResponse is returned by Session.JoinedRooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// SendEventResponse is returned by Session.SendMessage.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}
