// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType is a Matrix event type string (e.g., "m.room.member").
// Event types are dot-separated reverse-DNS names; they carry no
// structural invariant worth rejecting at parse time, so this is a
// plain string type for documentation and type safety at call sites.
type EventType string

// Event types the bridge recognizes.
const (
	// EventTypeRoomMember is the room membership state event. The
	// transaction handler watches for invites addressed to the
	// bridge's own user ID.
	EventTypeRoomMember EventType = "m.room.member"

	// EventTypeRoomMessage is the standard room message event, used
	// for free-game announcements.
	EventTypeRoomMessage EventType = "m.room.message"
)

// String returns the event type string.
func (t EventType) String() string { return string(t) }
