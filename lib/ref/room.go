// Copyright 2026 The Matrix Free Stuff Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// RoomID is a validated Matrix room ID (e.g., "!abc123:example.org").
//
// Room IDs are server-assigned opaque identifiers. They always start
// with '!' and contain a ':' separating the opaque local part from
// the server name. The bridge never constructs room IDs itself — they
// arrive in appservice transactions and homeserver responses, and are
// parsed into this type at the boundary.
//
// RoomID is an immutable value type. The zero value is not valid;
// use IsZero to check.
type RoomID struct {
	id string
}

// ParseRoomID validates and wraps a raw Matrix room ID string.
func ParseRoomID(raw string) (RoomID, error) {
	if err := parseMatrixID(raw, '!', "room ID"); err != nil {
		return RoomID{}, err
	}
	return RoomID{id: raw}, nil
}

// String returns the full room ID string (e.g., "!abc123:example.org").
func (r RoomID) String() string { return r.id }

// IsZero reports whether the RoomID is the zero value (uninitialized).
func (r RoomID) IsZero() bool { return r.id == "" }

// MarshalText implements encoding.TextMarshaler.
func (r RoomID) MarshalText() ([]byte, error) {
	return []byte(r.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input
// produces the zero value (unset).
func (r *RoomID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*r = RoomID{}
		return nil
	}
	parsed, err := ParseRoomID(string(data))
	if err != nil {
		return fmt.Errorf("unmarshaling room ID: %w", err)
	}
	*r = parsed
	return nil
}

// parseMatrixID checks the structural form sigil + localpart + ':' +
// server shared by user and room IDs.
func parseMatrixID(raw string, sigil byte, label string) error {
	if raw == "" {
		return fmt.Errorf("empty %s", label)
	}
	if raw[0] != sigil {
		return fmt.Errorf("%s must start with %q: %q", label, string(sigil), raw)
	}
	colon := -1
	for i := 1; i < len(raw); i++ {
		if raw[i] == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return fmt.Errorf("%s missing ':server' suffix: %q", label, raw)
	}
	if colon == 1 {
		return fmt.Errorf("%s has empty localpart: %q", label, raw)
	}
	if colon == len(raw)-1 {
		return fmt.Errorf("%s has empty server name: %q", label, raw)
	}
	return nil
}
